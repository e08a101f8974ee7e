// Package confloader loads ordguard configuration.
//
// It merges sources through koanf with the priority (highest first):
//
//  1. Explicit overrides (flags, maps)
//  2. Environment variables
//  3. Configuration file (YAML)
//  4. Defaults from the config package
//
// A Watcher built on fsnotify reloads the file on change so long-running
// processes can pick up new memory ceilings without restarting.
package confloader
