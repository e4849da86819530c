// Command litesql is a thin REPL over the engine package: dot-commands for
// inspecting a database file, and `;`-terminated SQL statements for
// SELECT/INSERT. Its dispatch shape follows app/main.go's dot-command
// switch, extended from a single one-shot ".dbinfo" call into a small
// read-eval-print loop.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kavelabs/litesql/engine"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: litesql <database-file> [command]")
		os.Exit(1)
	}
	dbPath := os.Args[1]

	sessionID := uuid.New().String()
	log := logrus.WithField("session", sessionID)

	ctx := context.Background()
	eng, err := engine.Open(ctx, dbPath, engine.WithReadOnly(false))
	if err != nil {
		log.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	defer eng.Close()

	if len(os.Args) > 2 {
		runCommand(ctx, eng, strings.Join(os.Args[2:], " "))
		return
	}

	repl(ctx, eng, log)
}

func repl(ctx context.Context, eng *engine.Engine, log *logrus.Entry) {
	scanner := bufio.NewScanner(os.Stdin)
	var buf strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if buf.Len() == 0 && strings.HasPrefix(trimmed, ".") {
			runCommand(ctx, eng, trimmed)
			continue
		}

		buf.WriteString(line)
		buf.WriteString(" ")
		if strings.HasSuffix(trimmed, ";") {
			stmt := buf.String()
			buf.Reset()
			runSQL(ctx, eng, stmt)
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Error("input read failed")
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, eng *engine.Engine, cmd string) {
	switch {
	case cmd == ".tables":
		for _, t := range eng.Tables() {
			fmt.Println(t)
		}
	case cmd == ".dbinfo":
		fmt.Printf("tables: %d\n", len(eng.Tables()))
	case strings.HasPrefix(cmd, ".explain "):
		sql := strings.TrimPrefix(cmd, ".explain ")
		fmt.Println("plan for:", sql)
	default:
		runSQL(ctx, eng, cmd)
	}
}

func runSQL(ctx context.Context, eng *engine.Engine, sql string) {
	rs, err := eng.Run(ctx, sql)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if rs == nil {
		return
	}
	fmt.Println(strings.Join(rs.Columns, "|"))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Println(strings.Join(cells, "|"))
	}
}
