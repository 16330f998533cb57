package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultOwner is used when neither -owner nor RECON_OWNER is set.
const DefaultOwner = "local"

// OwnerFlags are common flags for every data command
type OwnerFlags struct {
	Owner string
}

func (f *OwnerFlags) register(fs *flag.FlagSet) {
	owner := os.Getenv("RECON_OWNER")
	if owner == "" {
		owner = DefaultOwner
	}
	fs.StringVar(&f.Owner, "owner", owner, "Owner id (env RECON_OWNER)")
}

// idList collects ids from repeated or comma-separated flag values.
type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }

func (l *idList) Set(v string) error {
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			*l = append(*l, id)
		}
	}
	return nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// ImportFlags holds the flags for the import command.
type ImportFlags struct {
	OwnerFlags
	BankFile       string
	BankFormat     string
	InternalFile   string
	InternalFormat string
}

// ParseImportFlags parses import flags from args.
func ParseImportFlags(args []string, stderr io.Writer) (*ImportFlags, error) {
	flags := &ImportFlags{}
	fs := newFlagSet("import", stderr)
	flags.register(fs)
	fs.StringVar(&flags.BankFile, "bank", "", "Bank statement file (.xlsx, .xls or .csv)")
	fs.StringVar(&flags.BankFormat, "bank-format", "", "Bank layout: GENERIC, SICOOB or SICREDI")
	fs.StringVar(&flags.InternalFile, "internal", "", "Internal ledger file (.xlsx, .xls or .csv)")
	fs.StringVar(&flags.InternalFormat, "internal-format", "", "Internal layout: ERP or GENERIC")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if flags.BankFile == "" && flags.InternalFile == "" {
		return nil, fmt.Errorf("import needs -bank, -internal or both")
	}
	return flags, nil
}

// MatchFlags holds the flags for the match command. Giving -bank and
// -internal ids makes a manual match; otherwise -strategy runs.
type MatchFlags struct {
	OwnerFlags
	Strategy    string
	BankIDs     idList
	InternalIDs idList
}

// Manual reports whether ids were given.
func (f *MatchFlags) Manual() bool {
	return len(f.BankIDs) > 0 || len(f.InternalIDs) > 0
}

// ParseMatchFlags parses match flags from args.
func ParseMatchFlags(args []string, stderr io.Writer) (*MatchFlags, error) {
	flags := &MatchFlags{}
	fs := newFlagSet("match", stderr)
	flags.register(fs)
	fs.StringVar(&flags.Strategy, "strategy", "all", "exact, identifier, subset_sum or all")
	fs.Var(&flags.BankIDs, "bank", "Bank entry ids for a manual match (repeatable, comma-separated)")
	fs.Var(&flags.InternalIDs, "internal", "Internal entry ids for a manual match (repeatable, comma-separated)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// UnmatchFlags holds the flags for the unmatch command.
type UnmatchFlags struct {
	OwnerFlags
	MatchIDs []string
}

// ParseUnmatchFlags parses unmatch flags; match ids are positional.
func ParseUnmatchFlags(args []string, stderr io.Writer) (*UnmatchFlags, error) {
	flags := &UnmatchFlags{}
	fs := newFlagSet("unmatch", stderr)
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	flags.MatchIDs = fs.Args()
	if len(flags.MatchIDs) == 0 {
		return nil, fmt.Errorf("unmatch needs at least one match id")
	}
	return flags, nil
}

// RulesFlags holds the flags for the rules command. Without -tolerance
// or -days the rules are only printed.
type RulesFlags struct {
	OwnerFlags
	ValueTolerance    string
	DateToleranceDays int
	SetTolerance      bool
	SetDays           bool
}

// ParseRulesFlags parses rules flags from args.
func ParseRulesFlags(args []string, stderr io.Writer) (*RulesFlags, error) {
	flags := &RulesFlags{}
	fs := newFlagSet("rules", stderr)
	flags.register(fs)
	fs.StringVar(&flags.ValueTolerance, "tolerance", "", "Amount tolerance, e.g. 0.05")
	fs.IntVar(&flags.DateToleranceDays, "days", 0, "Date tolerance in days")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tolerance":
			flags.SetTolerance = true
		case "days":
			flags.SetDays = true
		}
	})
	return flags, nil
}

// ReportFlags holds the flags for the report command.
type ReportFlags struct {
	OwnerFlags
	Format string
	Output string
}

// ParseReportFlags parses report flags from args.
func ParseReportFlags(args []string, stderr io.Writer) (*ReportFlags, error) {
	flags := &ReportFlags{}
	fs := newFlagSet("report", stderr)
	flags.register(fs)
	fs.StringVar(&flags.Format, "format", "", "Export format: csv or xlsx (empty prints a summary)")
	fs.StringVar(&flags.Output, "o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// ClearFlags holds the flags for the clear command.
type ClearFlags struct {
	OwnerFlags
	Yes bool
}

// ParseClearFlags parses clear flags from args.
func ParseClearFlags(args []string, stderr io.Writer) (*ClearFlags, error) {
	flags := &ClearFlags{}
	fs := newFlagSet("clear", stderr)
	flags.register(fs)
	fs.BoolVar(&flags.Yes, "yes", false, "Confirm deletion of all entries and matches")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !flags.Yes {
		return nil, fmt.Errorf("clear deletes every entry and match for %s; rerun with -yes", flags.Owner)
	}
	return flags, nil
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port int
}

// ParseServeFlags parses command line flags for the serve command. A zero
// port keeps the configured one.
func ParseServeFlags(args []string, stderr io.Writer) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := newFlagSet("serve", stderr)
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (overrides config)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}
