//go:build windows

package winreg

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const uninstallKeyFmt = `Software\Microsoft\Windows\CurrentVersion\Uninstall\%s`

func uninstallKeyPath(appID string) string {
	return fmt.Sprintf(uninstallKeyFmt, appID)
}

func write(e Entry) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, uninstallKeyPath(e.AppID), registry.ALL_ACCESS)
	if err != nil {
		return fmt.Errorf("winreg: create uninstall key: %w", err)
	}
	defer key.Close()

	strings := map[string]string{
		"DisplayIcon":          e.DisplayIcon,
		"DisplayName":          e.DisplayName,
		"DisplayVersion":       e.DisplayVersion,
		"InstallDate":          e.InstallDate,
		"InstallLocation":      e.InstallLocation,
		"Publisher":            e.Publisher,
		"UninstallString":      e.UninstallString,
		"QuietUninstallString": e.QuietUninstallString,
	}
	for name, value := range strings {
		if err := key.SetStringValue(name, value); err != nil {
			return fmt.Errorf("winreg: set %s: %w", name, err)
		}
	}

	dwords := map[string]uint32{
		"EstimatedSize": uint32(e.EstimatedSizeKB),
		"NoModify":      1,
		"NoRepair":      1,
		"Language":      0x0409,
	}
	for name, value := range dwords {
		if err := key.SetDWordValue(name, value); err != nil {
			return fmt.Errorf("winreg: set %s: %w", name, err)
		}
	}

	return nil
}

func remove(appID string) error {
	err := registry.DeleteKey(registry.CURRENT_USER, uninstallKeyPath(appID))
	if err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("winreg: delete uninstall key: %w", err)
	}
	return nil
}

func exists(appID string) (bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, uninstallKeyPath(appID), registry.QUERY_VALUE)
	if err != nil {
		if err == registry.ErrNotExist {
			return false, nil
		}
		return false, fmt.Errorf("winreg: open uninstall key: %w", err)
	}
	key.Close()
	return true, nil
}

func urlProtocolKeyPath(scheme string) string {
	return fmt.Sprintf(`Software\Classes\%s`, scheme)
}

func registerURLProtocol(scheme, mainExe string) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, urlProtocolKeyPath(scheme), registry.ALL_ACCESS)
	if err != nil {
		return fmt.Errorf("winreg: create protocol key %s: %w", scheme, err)
	}
	defer key.Close()

	if err := key.SetStringValue("", fmt.Sprintf("URL:%s protocol", scheme)); err != nil {
		return err
	}
	if err := key.SetStringValue("URL Protocol", ""); err != nil {
		return err
	}

	cmdKey, _, err := registry.CreateKey(registry.CURRENT_USER, urlProtocolKeyPath(scheme)+`\shell\open\command`, registry.ALL_ACCESS)
	if err != nil {
		return fmt.Errorf("winreg: create shell\\open\\command for %s: %w", scheme, err)
	}
	defer cmdKey.Close()

	command := fmt.Sprintf(`"%s" "%%1"`, mainExe)
	return cmdKey.SetStringValue("", command)
}

func removeURLProtocol(scheme string) error {
	registry.DeleteKey(registry.CURRENT_USER, urlProtocolKeyPath(scheme)+`\shell\open\command`)
	registry.DeleteKey(registry.CURRENT_USER, urlProtocolKeyPath(scheme)+`\shell\open`)
	registry.DeleteKey(registry.CURRENT_USER, urlProtocolKeyPath(scheme)+`\shell`)
	err := registry.DeleteKey(registry.CURRENT_USER, urlProtocolKeyPath(scheme))
	if err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("winreg: delete protocol key %s: %w", scheme, err)
	}
	return nil
}
