// Package settings manages the daemon settings file.
//
// The settings describe how the daemon is assembled: which storage
// back-end holds the portal archive, which radio driver to use, the web
// and DNS listeners, mDNS and logging. They also carry optional
// overrides applied to the built-in portal defaults when no archive has
// been saved yet.
//
// # File Location
//
//   - Linux: $XDG_CONFIG_HOME/autoconnect/settings.yaml or $HOME/.config/autoconnect/settings.yaml
//   - macOS: $HOME/.config/autoconnect/settings.yaml
//   - Windows: %LOCALAPPDATA%\autoconnect\settings.yaml
//
// # Security
//
// Passphrases never live in this file except for simulator networks.
// Saved networks are kept in the credential table of the store.
package settings
