// Package scripting checks and previews document-level JavaScript.
package scripting

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ErrSyntax reports a script that does not compile.
var ErrSyntax = errors.New("scripting: syntax error")

// Check compiles src without running it.
func Check(src string) error {
	if _, err := goja.Compile("document.js", src, false); err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return nil
}

// Viewer is the part of a PDF viewer a document script can reach.
type Viewer interface {
	// Alert shows a message box.
	Alert(message string)

	// NumPages returns the page count exposed as this.numPages.
	NumPages() int

	// Print handles this.print().
	Print()
}
