package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"examsight/internal/supervisor"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show supervised streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBase()
			if err != nil {
				return err
			}

			statuses, err := newAPIClient(base).statuses(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(statuses) == 0 {
				fmt.Fprintln(out, "No streams supervised")
				return nil
			}
			if styledOutput(out) {
				fmt.Fprintln(out, renderStatusTable(statuses))
			} else {
				fmt.Fprintln(out, renderStatusPlain(statuses))
			}
			return nil
		},
	}
}

func statusRows(statuses map[string]supervisor.Status) [][]string {
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	caser := cases.Title(language.English)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		st := statuses[name]
		frameAge := "-"
		if st.LastFrameAgeSeconds > 0 {
			frameAge = strconv.FormatFloat(st.LastFrameAgeSeconds, 'f', 1, 64) + "s"
		}
		audio := "off"
		if st.AudioStarted {
			audio = strconv.FormatInt(st.AudioChunks, 10) + " windows"
		}
		rows = append(rows, []string{
			st.Name,
			caser.String(st.State),
			frameAge,
			audio,
			st.URL,
		})
	}
	return rows
}

func renderStatusTable(statuses map[string]supervisor.Status) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stream", "State", "Frame Age", "Audio", "Source"})
	for _, row := range statusRows(statuses) {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func renderStatusPlain(statuses map[string]supervisor.Status) string {
	lines := make([]string, 0, len(statuses))
	for _, row := range statusRows(statuses) {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n")
}

func styledOutput(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
