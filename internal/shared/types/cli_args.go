package types

// CLIArgs represents the command-line arguments.
type CLIArgs struct {
	ConfigFile string
	LeaseID    string
	UserEmail  string
	ReportName string
	ReportType []string
	Dir        string
	ListenAddr string
}
