// Command collabserve is a standalone host process for the collaboration
// core: it wires together the team registry, task board, inbox, hook
// dispatcher, and worktree manager, and exposes the lead-facing tool
// surface (collab/tools.Dispatch) as a small JSON-over-HTTP API. The
// actual model streaming client, tool sandbox, and UI rendering live
// elsewhere; this binary is a thin demonstration harness, not the
// production front-end.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentmesh/collabcore/collab/agentcontrol"
	"github.com/agentmesh/collabcore/collab/events"
	"github.com/agentmesh/collabcore/collab/hooks"
	"github.com/agentmesh/collabcore/collab/hooksconfig"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/spawn"
	"github.com/agentmesh/collabcore/collab/team"
	"github.com/agentmesh/collabcore/collab/telemetry"
	"github.com/agentmesh/collabcore/collab/tools"
	"github.com/agentmesh/collabcore/collab/worktree"
)

type cli struct {
	home       string
	host       string
	port       int
	noOpen     bool
	dev        bool
	token      string
	maxDepth   int
	hooksFiles []string
}

func main() {
	c := &cli{}
	root := &cobra.Command{
		Use:   "collabserve",
		Short: "Run the multi-agent collaboration core as a standalone server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context())
		},
	}
	root.Flags().StringVar(&c.home, "home", defaultHome(), "directory holding teams/, worktrees/, and hooks config")
	root.Flags().StringVar(&c.host, "host", "127.0.0.1", "bind address")
	root.Flags().IntVar(&c.port, "port", 0, "listen port (0 auto-assigns)")
	root.Flags().BoolVar(&c.noOpen, "no-open", false, "do not open the browser automatically")
	root.Flags().BoolVar(&c.dev, "dev", false, "serve web UI assets from the filesystem (dev mode)")
	root.Flags().StringVar(&c.token, "token", "", "bearer token required on every request (default: random)")
	root.Flags().IntVar(&c.maxDepth, "agent-max-depth", 4, "maximum nested spawn depth")
	root.Flags().StringArrayVar(&c.hooksFiles, "hooks-config", nil, "hooks TOML layer, lowest precedence first; may be repeated")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "collabserve:", err)
		os.Exit(1)
	}
}

func defaultHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".collabcore")
	}
	return ".collabcore"
}

func (c *cli) run(ctx context.Context) error {
	if err := os.MkdirAll(c.home, 0o755); err != nil {
		return fmt.Errorf("create home %s: %w", c.home, err)
	}
	if c.token == "" {
		c.token = uuid.NewString()
	}

	tel := telemetry.Bundle{
		Logger: telemetry.NewSlogLogger(slog.Default()),
		Tracer: telemetry.NewOtelTracer("collabserve"),
	}

	registry, err := loadHooks(c.hooksFiles)
	if err != nil {
		return fmt.Errorf("load hooks config: %w", err)
	}
	dispatcher := hooks.NewDispatcher(registry, hooks.Executors{}, tel)

	control := agentcontrol.NewFake(0)
	wt := worktree.NewManager(c.home)
	wt.Logger = tel.Logger
	env := &tools.Env{
		Home:  c.home,
		Teams: team.NewRegistry(),
		Spawn: spawn.Deps{
			Control:  control,
			Worktree: wt,
			Hooks:    dispatcher,
			MaxDepth: c.maxDepth,
			Reap:     control.Reap,
		},
		Sink:      events.LogSink{Logger: tel.Logger},
		Telemetry: tel,
	}

	lead := ids.NewThreadID()
	tel.Logger.Info(ctx, "collabserve starting", "lead_thread_id", lead.Short(), "home", c.home)

	mux := http.NewServeMux()
	mux.HandleFunc("/tools/", c.handleTool(env, lead))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if c.dev {
		mux.Handle("/", http.FileServer(http.Dir("web/dist")))
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	srv := &http.Server{Addr: addr, Handler: c.authMiddleware(mux)}

	ln, err := listen(addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	url := fmt.Sprintf("http://%s?token=%s", ln.Addr().String(), c.token)
	tel.Logger.Info(ctx, "collabserve listening", "url", url)

	if !c.noOpen {
		openBrowser(url)
	}

	return srv.Serve(ln)
}

func listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func loadHooks(files []string) (*hooks.Registry, error) {
	var layers []hooksconfig.Layer
	for _, f := range files {
		buf, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		layers = append(layers, hooksconfig.Layer{Name: f, TOML: string(buf)})
	}
	return hooksconfig.LoadLayers(layers)
}

// toolCallRequest is the wire shape of one POST /tools/<name> body.
type toolCallRequest struct {
	CallID        string          `json:"call_id"`
	CallerID      string          `json:"caller_id"`
	RootSessionID string          `json:"root_session_id"`
	ChildDepth    int             `json:"child_depth"`
	Cwd           string          `json:"cwd"`
	Args          json.RawMessage `json:"args"`
}

func (c *cli) handleTool(env *tools.Env, lead ids.ThreadID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tool := strings.TrimPrefix(r.URL.Path, "/tools/")
		if tool == "" {
			http.Error(w, "missing tool name", http.StatusBadRequest)
			return
		}

		var req toolCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		caller := tools.Caller{ThreadID: lead, RootSessionID: lead, ChildDepth: req.ChildDepth, Cwd: req.Cwd}
		if req.CallerID != "" {
			if id, err := ids.ParseThreadID(req.CallerID); err == nil {
				caller.ThreadID = id
			}
		}
		if req.RootSessionID != "" {
			if id, err := ids.ParseThreadID(req.RootSessionID); err == nil {
				caller.RootSessionID = id
			}
		}
		callID := req.CallID
		if callID == "" {
			callID = uuid.NewString()
		}

		out, err := tools.Dispatch(r.Context(), env, tool, caller, callID, req.Args)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (c *cli) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.URL.Query().Get("token")
		if got == "" {
			got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if got != c.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// openBrowser best-effort launches the host OS's default browser unless
// --no-open was given; a launch failure is ignored, not fatal.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
