//go:build windows

package shortcut

import (
	"errors"
	"path/filepath"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

var errUnknownLocation = errors.New("shortcut: unknown location")

// invokePinnedListVerb asks the shell to run a verb (e.g. "Unpin from
// taskbar" or "Unpin from Start") against a shell item for path, the same
// mechanism Explorer's context menu uses. Unsupported verbs (the item was
// never pinned) are not an error.
func invokePinnedListVerb(path, verb string) error {
	return runOnSTAWorker(func() error {
		unknown, err := oleutil.CreateObject("Shell.Application")
		if err != nil {
			return err
		}
		defer unknown.Release()

		shell, err := unknown.QueryInterface(ole.IID_IDispatch)
		if err != nil {
			return err
		}
		defer shell.Release()

		nsv, err := oleutil.CallMethod(shell, "NameSpace", filepath.Dir(path))
		if err != nil || nsv.VT != ole.VT_DISPATCH {
			return nil
		}
		folder := nsv.ToIDispatch()
		defer folder.Release()

		itemv, err := oleutil.CallMethod(folder, "ParseName", filepath.Base(path))
		if err != nil || itemv.VT != ole.VT_DISPATCH {
			return nil
		}
		item := itemv.ToIDispatch()
		defer item.Release()

		verbsv, err := oleutil.CallMethod(item, "Verbs")
		if err != nil || verbsv.VT != ole.VT_DISPATCH {
			return nil
		}
		verbs := verbsv.ToIDispatch()
		defer verbs.Release()

		countv, err := oleutil.GetProperty(verbs, "Count")
		if err != nil {
			return nil
		}
		count := int(countv.Val)
		for i := 0; i < count; i++ {
			vItemv, err := oleutil.CallMethod(verbs, "Item", i)
			if err != nil || vItemv.VT != ole.VT_DISPATCH {
				continue
			}
			vItem := vItemv.ToIDispatch()
			namev, err := oleutil.GetProperty(vItem, "Name")
			if err != nil {
				vItem.Release()
				continue
			}
			if matchesVerb(namev.ToString(), verb) {
				oleutil.CallMethod(vItem, "DoIt")
				vItem.Release()
				return nil
			}
			vItem.Release()
		}
		return nil
	})
}

func matchesVerb(name, want string) bool {
	// Mnemonic accelerators (e.g. "Un&pin from taskbar") are stripped before
	// comparing.
	clean := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '&' {
			continue
		}
		clean = append(clean, name[i])
	}
	return string(clean) == want
}
