package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/report"
	"github.com/pable/go-scrim-metrics/internal/server"
	"github.com/pable/go-scrim-metrics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long: `Open a persistent session with the sheets loaded once. Analytics commands
accept key=value options (map=Ascent start=2024-03-01 end=2024-03-08
player=alpha). Type 'help' for available commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

// shellSession holds the data a shell session works against.
type shellSession struct {
	db   *storage.DB
	data *server.Dataset
}

func runShell(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	s := &shellSession{db: db, data: loadDataset(cmd.Context())}

	cGreeting.Println("scrimmetrics shell")
	cMuted.Printf("%d matches, %d roster rows, %d player rows loaded\n",
		s.data.Scores.Len(), len(s.data.Roster), len(s.data.Players))
	for _, w := range s.data.Warnings {
		cWarn.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("scrimmetrics")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "reload":
			s.data = loadDataset(cmd.Context())
			cMuted.Printf("%d matches loaded\n", s.data.Scores.Len())
		case "list":
			s.list()
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <hash-prefix>")
				continue
			}
			s.show(args[0])
		case "sql":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: sql <query>")
				continue
			}
			s.sql(strings.Join(args, " "))
		case "overview", "rounds", "comps", "agents":
			opts, err := parseShellOpts(args)
			if err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			if err := s.view(name, opts); err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", err)
			}
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
	}
	return scanner.Err()
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"overview [start=] [end=]", "games and outcomes per map, ranked"},
		{"rounds [map=] [start=] [end=] [sort=]", "round insights per map"},
		{"comps [map=] [start=] [end=] [top=]", "top compositions"},
		{"agents [map=] [player=]", "agent stats and role benchmarks"},
		{"list", "list stored cleaning runs"},
		{"show <hash-prefix>", "show a stored run"},
		{"sql <query>", "run a raw SQL query"},
		{"reload", "reload the sheets from disk"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-40s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

type shellOpts struct {
	filter aggregator.Filter
	sort   string
	top    int
}

func parseShellOpts(args []string) (shellOpts, error) {
	opts := shellOpts{filter: aggregator.Filter{Map: aggregator.AllMaps}, sort: string(aggregator.SortByMap)}
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			return opts, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch key {
		case "map":
			opts.filter.Map = val
		case "start":
			opts.filter.Start = val
		case "end":
			opts.filter.End = val
		case "player":
			opts.filter.Player = val
		case "sort":
			opts.sort = val
		case "top":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return opts, fmt.Errorf("top must be a positive integer")
			}
			opts.top = n
		default:
			return opts, fmt.Errorf("unknown option %q", key)
		}
	}
	return opts, nil
}

func (s *shellSession) view(name string, opts shellOpts) error {
	table := s.data.Scores
	f := opts.filter
	if name != "agents" {
		if table.Len() == 0 {
			return fmt.Errorf("no match rows loaded from %s", appCfg.Paths.Cleaned)
		}
		if err := f.Validate(table); err != nil {
			return err
		}
	}

	fmt.Println()
	switch name {
	case "overview":
		rows, err := aggregator.MapSummary(table, aggregator.Filter{Start: f.Start, End: f.End})
		if err != nil {
			return err
		}
		report.PrintMapSummary(os.Stdout, rows)
		fmt.Println()
		report.PrintMapRanking(os.Stdout, aggregator.RankByWinRate(rows))
	case "rounds":
		rows, warnings, err := aggregator.RoundInsights(table, f)
		if err != nil {
			return err
		}
		rows = aggregator.SortRounds(rows, aggregator.ParseRoundSortKey(opts.sort), false)
		report.PrintRoundInsights(os.Stdout, rows)
		report.PrintWarnings(os.Stdout, warnings)
	case "comps":
		top := opts.top
		if top == 0 {
			top = appCfg.Analysis.TopCompositions
		}
		rows, err := aggregator.Compositions(s.data.Roster, table, f, top)
		if err != nil {
			return err
		}
		report.PrintCompositions(os.Stdout, rows)
	case "agents":
		aggs := aggregator.AgentSummary(s.data.Players, f)
		report.PrintAgents(os.Stdout, aggs)
		fmt.Println()
		report.PrintRoleComparison(os.Stdout, aggregator.CompareRoles(aggs))
	}
	fmt.Println()
	return nil
}

func (s *shellSession) list() {
	sheets, err := s.db.ListSheets()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(sheets) == 0 {
		cMuted.Println("No sheets stored yet.")
		return
	}
	report.PrintSheetList(os.Stdout, sheets)
}

func (s *shellSession) show(prefix string) {
	sh, err := s.db.GetSheetByPrefix(prefix)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if sh == nil {
		cWarn.Fprintf(os.Stderr, "no sheet found with prefix %q\n", prefix)
		return
	}
	table, err := s.db.LoadTable(sh.Hash)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	report.PrintSheetSummary(os.Stdout, *sh)
	rows, err := aggregator.MapSummary(table, aggregator.Filter{})
	if err != nil {
		cWarn.Fprintf(os.Stderr, "%v\n", err)
		return
	}
	cHeader.Fprintln(os.Stdout, "--- Maps ---")
	report.PrintMapSummary(os.Stdout, rows)
}

func (s *shellSession) sql(query string) {
	cols, rows, err := s.db.QueryRaw(query)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(rows) == 0 {
		cMuted.Println("(no rows)")
		return
	}
	report.PrintQueryResult(os.Stdout, cols, rows)
	cMuted.Printf("(%d rows)\n", len(rows))
}
