//go:build !windows

package winreg

// The "installed programs" database and custom URL protocol handlers are a
// Windows-only concept; other platforms have their own mechanisms (e.g.
// Launch Services on macOS) that are out of scope for this core.

func write(e Entry) error { return nil }

func remove(appID string) error { return nil }

func exists(appID string) (bool, error) { return false, nil }

func registerURLProtocol(scheme, mainExe string) error { return nil }

func removeURLProtocol(scheme string) error { return nil }
