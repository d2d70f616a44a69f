// Package config loads alertcast's file configuration.
//
// Files are JSON or YAML (chosen by extension). YAML is converted to JSON and
// both go through a strict decoder, so a misspelled key fails the load rather
// than silently falling back to a default.
//
// Manager.Watch reloads the file on change. Logging, reminder bounds and
// delivery pacing apply live; the other sections need a restart and the
// application logs that when they change (see SummarizeChange).
package config
