package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the viewer glyphs in one encoding.
type SymbolSet struct {
	Gavel   string
	ArrowR  string
	Success string
	Error   string
}

var unicodeSymbols = SymbolSet{
	Gavel:   "\u00A7", // §
	ArrowR:  "\u2192", // →
	Success: "\u2713", // ✓
	Error:   "\u2717", // ✗
}

var asciiSymbols = SymbolSet{
	Gavel:   "#",
	ArrowR:  "->",
	Success: "[OK]",
	Error:   "[ERR]",
}

// DetectUnicodeSupport reports whether the terminal likely renders Unicode.
// COURTROOM_ASCII_SYMBOLS=1 forces ASCII.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("COURTROOM_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}
	return true
}

// InitSymbols sets the Symbol* variables for the current terminal.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}
	SymbolGavel = set.Gavel
	SymbolArrowR = set.ArrowR
	SymbolSuccess = set.Success
	SymbolError = set.Error
}

func init() {
	InitSymbols()
}
