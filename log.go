package lox

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// ConfigureLogging installs the simple commonlog backend at the given
// verbosity (0 keeps logging quiet). Output goes to stderr.
func ConfigureLogging(verbosity int) {
	commonlog.Configure(verbosity, nil)
}
