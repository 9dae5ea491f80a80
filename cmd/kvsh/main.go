// kvsh is a line-oriented SQL shell over a kvgate engine.
//
//	kvsh -engine pebble -path ./data
//	kvgate> INSERT INTO kv VALUES ('alice', '30');
//	kvgate> SELECT * FROM kv WHERE k > 'a';
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/db"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/query"
	"github.com/myuser/kvgate/internal/status"
	"github.com/myuser/kvgate/internal/storage"
	_ "github.com/myuser/kvgate/internal/storage/all"
)

func main() {
	engine := flag.String("engine", "btree", "Storage engine: "+strings.Join(storage.Engines(), ", "))
	configPath := flag.String("config", "", "YAML or JSON engine config file")
	path := flag.String("path", "", "Engine path, overrides the config file entry")
	verbose := flag.Bool("v", false, "Log engine activity to stderr")
	flag.Parse()

	if *verbose {
		log.Init(log.Options{})
	}

	cfg := config.New()
	if *configPath != "" {
		var err error
		if cfg, err = config.FromFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "kvsh: %v\n", err)
			os.Exit(1)
		}
	}
	if *path != "" {
		cfg.PutString("path", *path)
	}

	d, st := db.Open(*engine, cfg)
	if st != status.OK {
		fmt.Fprintf(os.Stderr, "kvsh: open %s: %s\n", *engine, st)
		os.Exit(1)
	}
	defer d.Close()

	repl(d, os.Stdin, os.Stdout)
}

// repl reads statements terminated by ';' or end of line.
func repl(d *db.DB, in io.Reader, out io.Writer) {
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, "kvgate> ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
		case "exit", "quit", `\q`:
			return
		default:
			for _, stmt := range strings.Split(line, ";") {
				if stmt = strings.TrimSpace(stmt); stmt != "" {
					execute(d, stmt, out)
				}
			}
		}
		fmt.Fprint(out, "kvgate> ")
	}
	fmt.Fprintln(out)
}

func execute(d *db.DB, stmt string, out io.Writer) {
	res, err := query.Run(d, stmt)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if len(res.Rows) > 0 {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, row := range res.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		tw.Flush()
	}
	switch {
	case res.Affected > 0:
		fmt.Fprintf(out, "%s, %d row(s) affected\n", res.Status, res.Affected)
	default:
		fmt.Fprintf(out, "%s, %d row(s)\n", res.Status, len(res.Rows))
	}
}
