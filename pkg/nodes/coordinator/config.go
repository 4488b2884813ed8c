package coordinator

// Config controls how the Coordinator spawns and talks to worker
// processes, mirroring the constructor arguments of
// original_source/Nodes/initializers.py's Initializer.
type Config struct {
	// Hostname the Coordinator's own listener binds to; workers always
	// dial it back over loopback.
	Hostname string
	// Port the Coordinator listens on for RDY/SOP/termination traffic.
	Port int
	// WorkerBinary is the path to the compiled worker executable
	// spawned once per graph node.
	WorkerBinary string
	// Protocol names which protocol the spawned workers should run
	// (passed through as a worker argv entry).
	Protocol string
	// Shell is passed to every worker in its SetupMessage: true makes
	// the worker log to stdout, false to a file in the experiment
	// directory. Workers are spawned the same way in both cases.
	Shell bool
	// LogDir is the root directory worker log files are written under
	// when Shell is false.
	LogDir string
	// VisualizerPort, when non-zero, is the port an external visualizer
	// process listens on; workers mirror their traffic there.
	VisualizerPort int
}
