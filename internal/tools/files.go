package tools

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/perch-panel/perch/internal/daemon"
	"github.com/perch-panel/perch/internal/tool"
)

const (
	actionCompressFiles = "compress_files"
	actionWriteFile     = "write_file"
	actionPullFile      = "pull_file"
)

// archiveExtensions are the archive formats the node daemon can produce.
var archiveExtensions = map[string]bool{
	"zip":     true,
	"tar.gz":  true,
	"tgz":     true,
	"tar.bz2": true,
	"tbz2":    true,
	"tar.xz":  true,
	"txz":     true,
}

// CompressFiles archives files on a server's disk. The operation is pure
// daemon work with no local state; it runs under the long archive timeout
// since large servers take minutes to compress.
type CompressFiles struct {
	deps *Deps
}

// NewCompressFiles creates the compress_files tool.
func NewCompressFiles(deps *Deps) *CompressFiles {
	deps.defaults()
	return &CompressFiles{deps: deps}
}

func (t *CompressFiles) Name() string { return "compress_files" }

func (t *CompressFiles) Description() string {
	return "Compress files or directories on a server into an archive."
}

func (t *CompressFiles) Parameters() map[string]string {
	return map[string]string{
		"files":       "Files or directories to compress, relative to root (required, list or single path)",
		"root":        "Directory the paths are relative to (optional, defaults to /)",
		"name":        "Archive file name without extension (optional, generated if not provided)",
		"extension":   "Archive format: zip, tar.gz, tgz, tar.bz2, tbz2, tar.xz, or txz (optional, defaults to tar.gz)",
		"server_uuid": "Server UUID (optional, can use server_name instead)",
		"server_name": "Server name (optional, can use server_uuid instead)",
	}
}

func (t *CompressFiles) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	files := params.StringSlice("files")
	if len(files) == 0 {
		return tool.Fail(actionCompressFiles, tool.FailInvalidArgument,
			"At least one file or directory to compress is required")
	}

	extension := strings.ToLower(params.StringOr("extension", "tar.gz"))
	if !archiveExtensions[extension] {
		return tool.Fail(actionCompressFiles, tool.FailInvalidArgument,
			"Invalid archive format. Valid formats: zip, tar.gz, tgz, tar.bz2, tbz2, tar.xz, txz")
	}

	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionCompressFiles)
	if fail != nil {
		return *fail
	}

	node, fail := t.deps.nodeFor(ctx, server, actionCompressFiles)
	if fail != nil {
		return *fail
	}

	root := params.StringOr("root", "/")
	name := params.String("name")
	if name == "" {
		name = "archive-" + t.deps.Now().UTC().Format("2006-01-02T150405")
	}
	archiveName := name + "." + extension

	dm := t.deps.Dial(node, daemon.ArchiveTimeout)
	if msg, ok := remoteFailure(dm.CompressFiles(ctx, server.UUID, root, files, name, extension)); !ok {
		return tool.Fail(actionCompressFiles, tool.FailUpstream, "Failed to compress files: "+msg)
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "files_compressed", map[string]any{
		"archive": archiveName,
		"root":    root,
		"count":   len(files),
	}))
	t.deps.Audit.Emit("server.files_compressed", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"archive":     archiveName,
	})

	return tool.Ok(actionCompressFiles,
		fmt.Sprintf("Compressed %d item(s) into '%s' on server '%s'", len(files), archiveName, server.Name),
		map[string]any{
			"file_name":   archiveName,
			"root":        root,
			"file_count":  len(files),
			"server_name": server.Name,
		})
}

// WriteFile writes content to a file on a server's disk, creating or
// replacing it.
type WriteFile struct {
	deps *Deps
}

// NewWriteFile creates the write_file tool.
func NewWriteFile(deps *Deps) *WriteFile {
	deps.defaults()
	return &WriteFile{deps: deps}
}

func (t *WriteFile) Name() string { return "write_file" }

func (t *WriteFile) Description() string {
	return "Write content to a file on a server, creating the file if it does not exist."
}

func (t *WriteFile) Parameters() map[string]string {
	return map[string]string{
		"path":        "File path relative to the server root (required)",
		"content":     "File content to write (required, may be empty string)",
		"server_uuid": "Server UUID (optional, can use server_name instead)",
		"server_name": "Server name (optional, can use server_uuid instead)",
	}
}

func (t *WriteFile) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	filePath := strings.TrimSpace(params.String("path"))
	if filePath == "" {
		return tool.Fail(actionWriteFile, tool.FailInvalidArgument, "File path is required")
	}
	if !params.Has("content") {
		return tool.Fail(actionWriteFile, tool.FailInvalidArgument, "File content is required")
	}
	content := params.String("content")

	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionWriteFile)
	if fail != nil {
		return *fail
	}

	node, fail := t.deps.nodeFor(ctx, server, actionWriteFile)
	if fail != nil {
		return *fail
	}

	dm := t.deps.Dial(node, 0)
	if msg, ok := remoteFailure(dm.WriteFile(ctx, server.UUID, filePath, []byte(content))); !ok {
		return tool.Fail(actionWriteFile, tool.FailUpstream, "Failed to write file: "+msg)
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "file_written", map[string]any{
		"path": filePath,
		"size": len(content),
	}))
	t.deps.Audit.Emit("server.file_written", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"path":        filePath,
	})

	return tool.Ok(actionWriteFile,
		fmt.Sprintf("Wrote %d bytes to '%s' on server '%s'", len(content), filePath, server.Name),
		map[string]any{
			"file_name":   filePath,
			"size":        len(content),
			"server_name": server.Name,
		})
}

// PullFile asks the node to download a file from a URL onto a server's disk.
// The download itself happens in the background on the node; success means
// the download was accepted, not that it finished.
type PullFile struct {
	deps *Deps
}

// NewPullFile creates the pull_file tool.
func NewPullFile(deps *Deps) *PullFile {
	deps.defaults()
	return &PullFile{deps: deps}
}

func (t *PullFile) Name() string { return "pull_file" }

func (t *PullFile) Description() string {
	return "Download a file from an HTTP(S) URL onto a server. The download runs in the background on the node."
}

func (t *PullFile) Parameters() map[string]string {
	return map[string]string{
		"url":         "HTTP or HTTPS URL to download (required)",
		"root":        "Directory to download into (optional, defaults to /)",
		"file_name":   "Name to save the file as (optional, derived from the URL)",
		"server_uuid": "Server UUID (optional, can use server_name instead)",
		"server_name": "Server name (optional, can use server_uuid instead)",
	}
}

func (t *PullFile) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	rawURL := strings.TrimSpace(params.String("url"))
	if rawURL == "" {
		return tool.Fail(actionPullFile, tool.FailInvalidArgument, "URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return tool.Fail(actionPullFile, tool.FailInvalidArgument,
			"URL must be a valid http or https URL")
	}

	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionPullFile)
	if fail != nil {
		return *fail
	}

	node, fail := t.deps.nodeFor(ctx, server, actionPullFile)
	if fail != nil {
		return *fail
	}

	root := params.StringOr("root", "/")
	fileName := strings.TrimSpace(params.String("file_name"))
	if fileName == "" {
		fileName = path.Base(parsed.Path)
		if fileName == "." || fileName == "/" || fileName == "" {
			fileName = "download"
		}
	}

	dm := t.deps.Dial(node, 0)
	if msg, ok := remoteFailure(dm.PullFile(ctx, server.UUID, rawURL, root, fileName, false)); !ok {
		return tool.Fail(actionPullFile, tool.FailUpstream, "Failed to start download: "+msg)
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "file_pulled", map[string]any{
		"url":       rawURL,
		"file_name": fileName,
		"root":      root,
	}))
	t.deps.Audit.Emit("server.file_pulled", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"file_name":   fileName,
	})

	return tool.Ok(actionPullFile,
		fmt.Sprintf("Download of '%s' started on server '%s'", fileName, server.Name),
		map[string]any{
			"file_name":   fileName,
			"root":        root,
			"url":         rawURL,
			"server_name": server.Name,
		})
}
