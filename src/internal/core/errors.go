package core

import "errors"

// Error classes shared by every component. Wrap them with %w and test with errors.Is.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrSourceStartup   = errors.New("source startup error")
	ErrAlreadyRunning  = errors.New("already running")
	ErrNotRunning      = errors.New("not running")
	ErrProcessor       = errors.New("processor error")
	ErrExportTransport = errors.New("export transport error")
	ErrFilesystem      = errors.New("filesystem error")
	ErrKeyMaterial     = errors.New("key material error")
	ErrNoSources       = errors.New("no sources configured")
	ErrNoExporters     = errors.New("no exporters configured")
)
