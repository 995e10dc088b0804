package seeder

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authcrud/internal/flagx"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// Options are the seeder's command-line switches:
//
//	-import                 load the fixtures
//	-delete                 remove all records
//	-collection string      users or persons (default: all)
//	-prompt-admin-password  read the admin password from the terminal
type Options struct {
	Import              bool
	Delete              bool
	Collection          string
	PromptAdminPassword bool
}

// ParseOptions reads only the seeder flags from args, so the config flags
// (-d, -c, ...) can share the command line.
func ParseOptions(args []string) (*Options, error) {
	o := &Options{}
	fs := flag.NewFlagSet("seeder", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&o.Import, "import", false, "import seed data")
	fs.BoolVar(&o.Delete, "delete", false, "delete data")
	fs.StringVar(&o.Collection, "collection", "", "users or persons")
	fs.BoolVar(&o.PromptAdminPassword, "prompt-admin-password", false, "prompt for the admin password")

	if err := flagx.ParseKnown(fs, args); err != nil {
		return nil, err
	}
	if o.Import == o.Delete {
		return nil, errors.New("use exactly one of -import or -delete")
	}
	if !ValidCollection(o.Collection) {
		return nil, fmt.Errorf("unknown collection %q", o.Collection)
	}
	return o, nil
}

// PromptPassword asks twice for a password without echo.
func PromptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(w, "Admin password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("empty password")
	}
	return string(first), nil
}
