package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func formatMaybeUint(v *uint) string {
	if v == nil {
		return "-"
	}
	return uintToString(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func printUser(u userView) {
	rows := [][2]string{{"id", uintToString(u.ID)}, {"username", u.Username}, {"role", u.Role}}
	if len(u.Capabilities) > 0 {
		rows = append(rows, [2]string{"capabilities", strings.Join(u.Capabilities, ",")})
	}
	printKV(rows)
}

func printSoftware(items []domain.Software) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Name,
			orDash(strings.Join(item.AccessLevels, ",")),
			orDash(item.Description),
		})
	}
	printTable([]string{"ID", "NAME", "ACCESS_LEVELS", "DESCRIPTION"}, rows)
}

func printSoftwareItem(item domain.Software) {
	printKV([][2]string{
		{"id", uintToString(item.ID)},
		{"name", item.Name},
		{"description", orDash(item.Description)},
		{"access_levels", orDash(strings.Join(item.AccessLevels, ","))},
	})
}

func printRequests(items []requestView, showRequester bool) {
	headers := []string{"ID", "SOFTWARE", "ACCESS", "STATUS", "REASON"}
	if showRequester {
		headers = []string{"ID", "USER", "SOFTWARE", "ACCESS", "STATUS", "REASON"}
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := []string{uintToString(item.ID)}
		if showRequester {
			row = append(row, orDash(item.UserName))
		}
		row = append(row, orDash(item.SoftwareName), item.AccessType, item.Status, item.Reason)
		rows = append(rows, row)
	}
	printTable(headers, rows)
}

func printRequest(item requestView) {
	printKV([][2]string{
		{"id", uintToString(item.ID)},
		{"user", orDash(item.UserName)},
		{"software", orDash(item.SoftwareName)},
		{"access_type", orDash(item.AccessType)},
		{"reason", orDash(item.Reason)},
		{"status", item.Status},
	})
}

func printAuditRecords(items []domain.AuditRecord) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Action,
			item.TargetType,
			formatMaybeUint(item.TargetID),
			orDash(item.ActorUsername),
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "ACTION", "TARGET_TYPE", "TARGET_ID", "ACTOR", "AT"}, rows)
}
