//go:build darwin

package bundle

import (
	"bufio"
	"os"
)

// machoMagics lists the 32/64-bit, both-endian Mach-O magic numbers, plus
// the fat-binary magic, so maybeMarkExecutableMacho can recognise any
// executable produced by the macOS toolchains Velopack targets.
var machoMagics = [][4]byte{
	{0xfe, 0xed, 0xfa, 0xce}, // MH_MAGIC
	{0xce, 0xfa, 0xed, 0xfe}, // MH_CIGAM
	{0xfe, 0xed, 0xfa, 0xcf}, // MH_MAGIC_64
	{0xcf, 0xfa, 0xed, 0xfe}, // MH_CIGAM_64
	{0xca, 0xfe, 0xba, 0xbe}, // FAT_MAGIC
	{0xbe, 0xba, 0xfe, 0xca}, // FAT_CIGAM
}

// maybeMarkExecutableMacho inspects the first 4 bytes of destPath and, if
// they match a Mach-O magic number, sets the executable permission bits.
func maybeMarkExecutableMacho(destPath string) error {
	f, err := os.Open(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var magic [4]byte
	br := bufio.NewReader(f)
	if _, err := br.Read(magic[:]); err != nil {
		return nil // shorter than 4 bytes, definitely not Mach-O
	}

	for _, m := range machoMagics {
		if magic == m {
			fi, err := os.Stat(destPath)
			if err != nil {
				return err
			}
			return os.Chmod(destPath, fi.Mode()|0o111)
		}
	}
	return nil
}
