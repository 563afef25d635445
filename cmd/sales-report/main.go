package main

// main is the entry point for the sales-report application.
// Build-time variables 'version', 'commit', and 'date' are declared in root.go
// and populated via -ldflags.
func main() {
	Execute()
}
