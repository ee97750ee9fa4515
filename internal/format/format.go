// Package format renders tool envelopes as human-readable summaries for the
// chat surface. Rendering is keyed by result kind through a lookup table, so
// new tool kinds get a template by registration rather than by editing a
// branch statement; kinds without a template fall back to a generic dump
// that always includes the message.
package format

import (
	"fmt"
	"slices"
	"strings"

	"github.com/perch-panel/perch/internal/tool"
)

// RenderFunc renders the field payload of one result kind. The surrounding
// header and message lines are added by the Formatter.
type RenderFunc func(fields map[string]any) string

// Formatter renders dispatch envelopes.
type Formatter struct {
	renderers map[string]RenderFunc
}

// New creates a Formatter with templates for the built-in tool kinds.
func New() *Formatter {
	f := &Formatter{renderers: make(map[string]RenderFunc)}

	f.Register("server_power", func(fields map[string]any) string {
		var b strings.Builder
		writeField(&b, fields, "action_past", "Action")
		writeField(&b, fields, "server_name", "Server")
		b.WriteString("\nThe server power action has been executed successfully.")
		return b.String()
	})

	f.Register("create_backup", func(fields map[string]any) string {
		var b strings.Builder
		writeField(&b, fields, "backup_name", "Backup Name")
		writeField(&b, fields, "backup_uuid", "Backup UUID")
		writeField(&b, fields, "server_name", "Server")
		b.WriteString("\nThe backup has been initiated and is running in the background. You can check its status on the backups page.")
		return b.String()
	})

	f.Register("delete_backup", func(fields map[string]any) string {
		var b strings.Builder
		writeField(&b, fields, "backup_name", "Backup Name")
		writeField(&b, fields, "backup_uuid", "Backup UUID")
		writeField(&b, fields, "server_name", "Server")
		b.WriteString("\nThe backup has been deleted successfully.")
		return b.String()
	})

	f.Register("create_database", func(fields map[string]any) string {
		var b strings.Builder
		writeField(&b, fields, "database_name", "Database Name")
		writeField(&b, fields, "username", "Username")
		writeField(&b, fields, "password", "Password")
		if host, ok := fields["database_host"]; ok {
			if port, ok2 := fields["database_port"]; ok2 {
				fmt.Fprintf(&b, "Host: %v:%v\n", host, port)
			} else {
				fmt.Fprintf(&b, "Host: %v\n", host)
			}
		}
		b.WriteString("\nThe database has been created successfully.")
		return b.String()
	})

	f.Register("create_schedule", func(fields map[string]any) string {
		var b strings.Builder
		writeField(&b, fields, "schedule_name", "Schedule Name")
		writeField(&b, fields, "cron_expression", "Cron Expression")
		writeField(&b, fields, "next_run_at", "Next Run")
		writeField(&b, fields, "server_name", "Server")
		if n, ok := fields["tasks_created"].(int); ok && n > 0 {
			fmt.Fprintf(&b, "Tasks Created: %d\n", n)
		} else {
			b.WriteString("\n⚠️ Warning: No tasks were created. The schedule will not execute anything until tasks are added.\n")
		}
		b.WriteString("\nThe schedule has been created.")
		return b.String()
	})

	f.Register("create_task", func(fields map[string]any) string {
		var b strings.Builder
		writeField(&b, fields, "action", "Task Action")
		if seq, ok := fields["sequence_id"]; ok {
			fmt.Fprintf(&b, "Sequence: #%v\n", seq)
		}
		writeField(&b, fields, "schedule_name", "Schedule")
		writeField(&b, fields, "server_name", "Server")
		b.WriteString("\nThe task has been created successfully.")
		return b.String()
	})

	allocation := func(verb string) RenderFunc {
		return func(fields map[string]any) string {
			var b strings.Builder
			if ip, ok := fields["allocation_ip"]; ok {
				port := fields["allocation_port"]
				fmt.Fprintf(&b, "Allocation: %v:%v\n", ip, port)
			}
			writeField(&b, fields, "server_name", "Server")
			fmt.Fprintf(&b, "\nThe allocation has been %s successfully.", verb)
			return b.String()
		}
	}
	f.Register("auto_allocate", allocation("assigned"))
	f.Register("delete_allocation", allocation("removed"))

	file := func(sentence string) RenderFunc {
		return func(fields map[string]any) string {
			var b strings.Builder
			writeField(&b, fields, "file_name", "File")
			writeField(&b, fields, "url", "URL")
			writeField(&b, fields, "root", "Directory")
			writeField(&b, fields, "server_name", "Server")
			b.WriteString("\n" + sentence)
			return b.String()
		}
	}
	f.Register("compress_files", file("The files have been compressed successfully."))
	f.Register("write_file", file("The file has been written successfully."))
	f.Register("pull_file", file("The download has been started and is running in the background."))

	return f
}

// Register installs or replaces the renderer for a result kind.
func (f *Formatter) Register(kind string, fn RenderFunc) {
	f.renderers[kind] = fn
}

// Format renders one dispatch envelope. Failures use a fixed shape; success
// branches on the result kind, falling back to a key/value dump of scalar
// fields for kinds without a template.
func (f *Formatter) Format(toolName string, env tool.Envelope) string {
	if !env.Success || env.Data == nil {
		msg := env.Error
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Sprintf("❌ Tool %s failed: %s", toolName, msg)
	}

	res := env.Data
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Sprintf("❌ Tool %s failed: %s", toolName, msg)
	}

	var b strings.Builder
	b.WriteString("✅ Action completed successfully!\n\n")
	if res.Message != "" {
		fmt.Fprintf(&b, "Result: %s\n\n", res.Message)
	}

	if render, ok := f.renderers[res.Action]; ok {
		b.WriteString(render(res.Fields))
	} else if len(res.Fields) > 0 {
		b.WriteString(dumpFields(res.Fields))
	}

	return strings.TrimRight(b.String(), "\n")
}

// dumpFields renders scalar fields as a sorted key/value list.
func dumpFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString("Details:\n")
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string, bool, int, int64, float64:
			fmt.Fprintf(&b, "- %s: %v\n", k, v)
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, fields map[string]any, key, label string) {
	if v, ok := fields[key]; ok {
		fmt.Fprintf(b, "%s: %v\n", label, v)
	}
}
