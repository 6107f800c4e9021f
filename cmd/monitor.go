package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"
	"github.com/webitel/push-bridge-service/internal/domain/model"
)

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:    "monitor",
		Aliases: []string{"m"},
		Usage:   "Live dashboard over a running server's /stats",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "http://localhost:8080",
				Usage: "Base URL of the server",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: time.Second,
				Usage: "Refresh interval",
			},
		},
		Action: func(c *cli.Context) error {
			return runMonitor(c.Context, c.String("addr"), c.Duration("interval"))
		},
	}
}

func runMonitor(ctx context.Context, addr string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer ui.Close()

	header := widgets.NewParagraph()
	header.Title = " push bridge "
	header.SetRect(0, 0, 80, 6)

	mailbox := widgets.NewGauge()
	mailbox.Title = " mailbox "
	mailbox.SetRect(0, 6, 80, 9)

	table := widgets.NewTable()
	table.Title = " events "
	table.RowSeparator = false
	table.SetRect(0, 9, 80, 22)

	client := &http.Client{Timeout: interval}
	refresh := func() {
		st, err := fetchStats(ctx, client, addr)
		if err != nil {
			header.Text = "[error](fg:red) " + err.Error()
			ui.Render(header)
			return
		}
		header.Text = summary(st)
		mailbox.Percent = mailboxPercent(st)
		mailbox.Label = fmt.Sprintf("%d/%d", st.MailboxDepth, st.MailboxSize)
		table.Rows = statsRows(st)
		ui.Render(header, mailbox, table)
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	events := ui.PollEvents()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			if e.ID == "q" || e.ID == "<C-c>" {
				return nil
			}
		case <-ticker.C:
			refresh()
		}
	}
}

func fetchStats(ctx context.Context, client *http.Client, addr string) (model.BridgeStats, error) {
	var st model.BridgeStats
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/stats", nil)
	if err != nil {
		return st, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("stats: %s", resp.Status)
	}
	return st, json.NewDecoder(resp.Body).Decode(&st)
}

func summary(st model.BridgeStats) string {
	attached := "[detached](fg:yellow)"
	if st.Attached {
		attached = "[attached](fg:green)"
	}
	return fmt.Sprintf("channel: %s   policy: %s\nsessions: %d   parked displays: %d\nuptime: %s",
		attached, st.Policy, st.Sessions, st.ParkedDisplays, st.Uptime.Truncate(time.Second))
}

func mailboxPercent(st model.BridgeStats) int {
	if st.MailboxSize <= 0 {
		return 0
	}
	return st.MailboxDepth * 100 / st.MailboxSize
}

func statsRows(st model.BridgeStats) [][]string {
	names := make([]string, 0, len(st.Events))
	for name := range st.Events {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := [][]string{{"event", "listeners", "emitted", "delivered", "dropped", "degraded", "failed"}}
	for _, name := range names {
		e := st.Events[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(e.Listeners),
			strconv.FormatUint(e.Emitted, 10),
			strconv.FormatUint(e.Delivered, 10),
			strconv.FormatUint(e.Dropped, 10),
			strconv.FormatUint(e.Degraded, 10),
			strconv.FormatUint(e.SendFailed, 10),
		})
	}
	return rows
}
