// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes soundboard tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/soundboard/internal/history"
	"github.com/starford/soundboard/internal/soundboard"
)

const hotkeysURI = "soundboard://hotkeys"

// Server wraps the MCP server with soundboard tools.
type Server struct {
	mcp *server.MCPServer
	svc *soundboard.Service
}

// New creates a new MCP server with all soundboard tools registered.
func New(svc *soundboard.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Soundboard",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_sounds",
		mcp.WithDescription("List every sound in the library with its category, size and bound shortcut."),
		mcp.WithString("category", mcp.Description("Optional category directory name to filter by")),
	), s.listSounds)

	s.mcp.AddTool(mcp.NewTool("play_sound",
		mcp.WithDescription("Play a sound by file name. Plays overlap; use stop_playback to cut the latest one."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Sound file name (e.g. laugh.wav)")),
	), s.playSound)

	s.mcp.AddTool(mcp.NewTool("stop_playback",
		mcp.WithDescription("Stop the most recently started sound."),
	), s.stopPlayback)

	s.mcp.AddTool(mcp.NewTool("set_volume",
		mcp.WithDescription("Set the output level. Values outside 0..1 are clamped."),
		mcp.WithNumber("volume", mcp.Required(), mcp.Description("Level between 0 and 1")),
	), s.setVolume)

	s.mcp.AddTool(mcp.NewTool("list_hotkeys",
		mcp.WithDescription("List the keyboard shortcuts as \"key: sound\" lines."),
	), s.listHotkeys)

	s.mcp.AddTool(mcp.NewTool("bind_hotkey",
		mcp.WithDescription("Bind a key to a sound. Fails if the key already plays another sound; "+
			"the sound's previous key is released."),
		mcp.WithString("sound", mcp.Required(), mcp.Description("Sound file name")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Key name: a character (a), Key.<name> (Key.f1) or <vk>")),
	), s.bindHotkey)

	s.mcp.AddTool(mcp.NewTool("clear_hotkey",
		mcp.WithDescription("Remove the shortcut bound to a sound."),
		mcp.WithString("sound", mcp.Required(), mcp.Description("Sound file name")),
	), s.clearHotkey)

	s.mcp.AddTool(mcp.NewTool("delete_hotkey",
		mcp.WithDescription("Remove a key binding."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Key name")),
	), s.deleteHotkey)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Play counter, library size, volume and the play history summary."),
		mcp.WithNumber("top", mcp.Description("Number of top and recent plays to include (default 10)")),
	), s.getStats)

	s.mcp.AddTool(mcp.NewTool("import_sound",
		mcp.WithDescription("Import an audio file (wav, mp3, m4a) into the library root from a "+
			"base64 data URI, an http(s) URL or a local file:// path."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:audio/...;base64,..., http(s) URL or file:///path")),
		mcp.WithString("filename", mcp.Description("Target file name; derived from the URL when empty")),
	), s.importSound)

	// Resource: shortcut viewer.
	s.mcp.AddResource(
		mcp.NewResource(hotkeysURI, "Keyboard Shortcuts",
			mcp.WithResourceDescription("Current key bindings, one \"key: sound\" per line."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readHotkeysResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listSounds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.svc.Sounds(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if category := req.GetString("category", ""); category != "" {
		filtered := view.Sounds[:0:0]
		for _, item := range view.Sounds {
			if item.Category == category || filepath.Base(item.Category) == category {
				filtered = append(filtered, item)
			}
		}
		view.Sounds = filtered
		view.Total = len(filtered)
	}
	if view.Empty {
		return mcp.NewToolResultText("the library is empty: drop .wav, .mp3 or .m4a files into " + s.svc.Root()), nil
	}
	return jsonResult(view), nil
}

func (s *Server) playSound(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Play(ctx, name, history.SourceMCP)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("playing: %s (play score %d)", res.Sound, res.PlayScore)), nil
}

func (s *Server) stopPlayback(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.Stop(ctx)
	return mcp.NewToolResultText("stopped"), nil
}

func (s *Server) setVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	level, err := req.RequireFloat("volume")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v := s.svc.SetVolume(ctx, level)
	return mcp.NewToolResultText(fmt.Sprintf("volume: %.2f", v)), nil
}

func (s *Server) hotkeyLines(ctx context.Context) string {
	bindings := s.svc.Bindings(ctx)
	if len(bindings) == 0 {
		return "no shortcuts assigned"
	}
	lines := make([]string, 0, len(bindings))
	for _, b := range bindings {
		lines = append(lines, b.Key+": "+b.Sound)
	}
	return strings.Join(lines, "\n")
}

func (s *Server) listHotkeys(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.hotkeyLines(ctx)), nil
}

func (s *Server) bindHotkey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sound, err := req.RequireString("sound")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Assign(ctx, sound, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) clearHotkey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sound, err := req.RequireString("sound")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := s.svc.ClearHotkey(ctx, sound)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("cleared: %s (was %s)", sound, key)), nil
}

func (s *Server) deleteHotkey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sound, err := s.svc.DeleteHotkey(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s (was %s)", key, sound)), nil
}

func (s *Server) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top := int(req.GetFloat("top", 10))
	if top <= 0 {
		top = 10
	}
	st, err := s.svc.Stats(ctx, top)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st), nil
}

func (s *Server) readHotkeysResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      hotkeysURI,
			MIMEType: "text/plain",
			Text:     s.hotkeyLines(ctx),
		},
	}, nil
}
