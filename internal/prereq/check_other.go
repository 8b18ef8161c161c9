//go:build !windows

package prereq

// On non-Windows hosts none of these prerequisite families apply -- there
// is no .NET Framework, no VC++ redistributable, and no WebView2 runtime to
// check for, so every check reports already satisfied.

func netFrameworkSatisfied(fxVer string) (bool, error) {
	return true, nil
}

func netModernSatisfied(d Dependency, hostArch string) (bool, error) {
	return true, nil
}

func vcredistSatisfied(d Dependency) (bool, error) {
	return true, nil
}

func webview2Satisfied() (bool, error) {
	return true, nil
}

func bootstrapperURL(d Dependency) (string, error) {
	return "", errUnsupportedOnPlatform
}
