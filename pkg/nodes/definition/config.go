package definition

import "time"

// BasePort is the first port handed out to worker 0; worker i listens
// on BasePort+i, mirroring original_source/Nodes/initializers.py's
// `[65432+x for x in range(N)]`.
const BasePort = 65432

// DatagramBufferSize is the receive buffer size for every UDP socket
// in the system, matching original_source/Nodes/message_handler.py's
// 4096-byte recvfrom buffer.
const DatagramBufferSize = 4096

// BullyTimeout is the reference wait time a Bully candidate allows for
// a higher-ID REPLY before declaring itself leader.
const BullyTimeout = 5 * time.Second

// MutexCriticalSectionEntries is the default number of times a Lamport
// or Ricart-Agrawala worker requests the critical section before
// sending END, matching the Python reference's hardcoded CS_counter==2.
const MutexCriticalSectionEntries = 2
