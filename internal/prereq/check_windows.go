//go:build windows

package prereq

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"golang.org/x/sys/windows/registry"
)

// netFxReleaseThresholds maps the "{fx-version}" token suffix to the
// minimum Release DWORD published by Microsoft for that .NET Framework 4.x
// minor version under NDP\v4\Full.
var netFxReleaseThresholds = map[string]uint32{
	"45":  378389,
	"451": 378675,
	"452": 379893,
	"46":  393295,
	"461": 394254,
	"462": 394802,
	"47":  460798,
	"471": 461308,
	"472": 461808,
	"48":  528040,
	"481": 533320,
}

func netFrameworkSatisfied(fxVer string) (bool, error) {
	threshold, ok := netFxReleaseThresholds[fxVer]
	if !ok {
		return false, fmt.Errorf("prereq: unknown net4x version %q", fxVer)
	}

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\NET Framework Setup\NDP\v4\Full`, registry.QUERY_VALUE)
	if err != nil {
		if err == registry.ErrNotExist {
			return false, nil
		}
		return false, fmt.Errorf("prereq: opening NDP registry key: %w", err)
	}
	defer key.Close()

	release, _, err := key.GetIntegerValue("Release")
	if err != nil {
		return false, nil
	}
	return uint32(release) >= threshold, nil
}

func programFilesDotnetRoot(arch string) string {
	base := os.Getenv("ProgramFiles")
	if arch == "x86" {
		if v := os.Getenv("ProgramFiles(x86)"); v != "" {
			base = v
		}
	}
	return filepath.Join(base, "dotnet")
}

func netModernSatisfied(d Dependency, hostArch string) (bool, error) {
	flavorDir := map[string]string{
		"runtime":        "shared/Microsoft.NETCore.App",
		"aspnetcore":     "shared/Microsoft.AspNetCore.App",
		"windowsdesktop": "shared/Microsoft.WindowsDesktop.App",
		"sdk":            "sdk",
	}[d.Flavor]
	if flavorDir == "" {
		return false, fmt.Errorf("prereq: unknown .NET flavor %q", d.Flavor)
	}

	root := programFilesDotnetRoot(d.Arch)
	if sub := dotnetArchDir(hostArch, d.Arch); sub != "" {
		root = filepath.Join(root, sub)
	}

	dir := filepath.Join(root, filepath.FromSlash(flavorDir))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("prereq: reading %s: %w", dir, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		installed, err := semver.NewVersion(e.Name())
		if err != nil {
			continue
		}
		if !installed.LessThan(d.Version) {
			return true, nil
		}
	}
	return false, nil
}

const vcredistUninstallRoot = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`

func vcredistSatisfied(d Dependency) (bool, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, vcredistUninstallRoot, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return false, fmt.Errorf("prereq: opening uninstall root: %w", err)
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return false, fmt.Errorf("prereq: enumerating uninstall subkeys: %w", err)
	}

	archToken := strings.ToUpper(d.Arch)
	for _, name := range names {
		sub, err := registry.OpenKey(registry.LOCAL_MACHINE, vcredistUninstallRoot+`\`+name, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		displayName, _, err := sub.GetStringValue("DisplayName")
		sub.Close()
		if err != nil {
			continue
		}
		if !strings.Contains(displayName, "Visual C++") || !strings.Contains(displayName, "Redistributable") {
			continue
		}
		if archToken != "" && !strings.Contains(strings.ToUpper(displayName), archToken) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func webview2Satisfied() (bool, error) {
	for _, root := range []registry.Key{registry.LOCAL_MACHINE, registry.CURRENT_USER} {
		key, err := registry.OpenKey(root, `SOFTWARE\WOW6432Node\Microsoft\EdgeUpdate\Clients\{F3017226-FE2A-4295-8BDF-00C3A9A7E4C5}`, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		version, _, err := key.GetStringValue("pv")
		key.Close()
		if err == nil && version != "" && version != "0.0.0.0" {
			return true, nil
		}
	}
	return false, nil
}

// bootstrapperURL resolves the download URL for a missing dependency's
// evergreen or versioned bootstrapper installer.
func bootstrapperURL(d Dependency) (string, error) {
	switch d.Kind {
	case KindWebView2:
		return "https://go.microsoft.com/fwlink/p/?LinkId=2124703", nil
	case KindVCRedist:
		arch := d.Arch
		if arch == "" {
			arch = "x64"
		}
		return fmt.Sprintf("https://aka.ms/vs/17/release/vc_redist.%s.exe", arch), nil
	case KindNetFramework:
		return netFrameworkInstallerURL(d.FxVer)
	case KindNetModern:
		return fmt.Sprintf("https://dotnetcli.blob.core.windows.net/dotnet/%s/%s/latest.version", flavorBlobPath(d.Flavor), d.Arch), nil
	default:
		return "", fmt.Errorf("prereq: no known installer source for %q", d.Token)
	}
}

func flavorBlobPath(flavor string) string {
	switch flavor {
	case "aspnetcore":
		return "aspnetcore/Runtime"
	case "windowsdesktop":
		return "WindowsDesktop"
	case "sdk":
		return "Sdk"
	default:
		return "Runtime"
	}
}

var netFxInstallerURLs = map[string]string{
	"45":  "https://download.microsoft.com/download/B/A/4/BA4A7E71-2906-4B2D-A0E1-80CF16844F5F/dotNetFx45_Full_setup.exe",
	"451": "https://download.microsoft.com/download/E/2/1/E21644B5-2DF2-47C2-91BD-63C560427900/NDP451-KB2858728-x86-x64-AllOS-ENU.exe",
	"452": "https://download.microsoft.com/download/E/2/1/E21644B5-2DF2-47C2-91BD-63C560427900/NDP452-KB2901907-x86-x64-AllOS-ENU.exe",
	"46":  "https://download.microsoft.com/download/C/3/A/C3A5200B-D33C-47E9-9D70-2F7C65DAAD94/NDP46-KB3045557-x86-x64-AllOS-ENU.exe",
	"461": "https://download.microsoft.com/download/E/4/1/E4173890-A24A-4936-9FC9-AF930FE3FA40/NDP461-KB3102436-x86-x64-AllOS-ENU.exe",
	"462": "https://download.microsoft.com/download/F/9/4/F9409BC1-A4AE-4C49-9314-6BB2A43D6B56/NDP462-KB3151800-x86-x64-AllOS-ENU.exe",
	"47":  "https://download.microsoft.com/download/9/E/6/9E63300C-0941-4B45-A0EC-0008F96DD480/NDP47-KB3186497-x86-x64-AllOS-ENU.exe",
	"471": "https://download.microsoft.com/download/9/E/6/9E63300C-0941-4B45-A0EC-0008F96DD480/NDP471-KB4033342-x86-x64-AllOS-ENU.exe",
	"472": "https://download.microsoft.com/download/A/1/D/A1D07600-6915-4B9E-9A2A-0C9CF7535A69/NDP472-KB4054531-x86-x64-AllOS-ENU.exe",
	"48":  "https://download.microsoft.com/download/5/E/1/5E1DC2D0-6F0A-44EB-9FAB-E8DE5C338D1E/ndp48-x86-x64-allos-enu.exe",
	"481": "https://download.visualstudio.microsoft.com/download/pr/ndp481-x86-x64-allos-enu.exe",
}

func netFrameworkInstallerURL(fxVer string) (string, error) {
	url, ok := netFxInstallerURLs[fxVer]
	if !ok {
		return "", fmt.Errorf("prereq: no known installer for net%s", fxVer)
	}
	return url, nil
}
