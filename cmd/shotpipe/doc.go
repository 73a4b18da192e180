// Command shotpipe ingests generated media into versioned batch folders.
//
// Subcommands scan an input directory, process eligible files into
// processed/<batch>/ under the output root, watch for new files, and inspect
// or maintain the processing history and batch counters. Configuration is
// loaded once per invocation from --config or the default locations; see
// `shotpipe config init` for a sample file.
package main
