package safety

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cowwoc/claude-code-cat-sub001/internal/command"
	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
	"github.com/cowwoc/claude-code-cat-sub001/internal/lock"
)

// Default tool names quoted in lock-artifact messages.
const (
	DefaultForceReleaseCommand = "issue-lock.sh force-release"
	DefaultCleanupCommand      = "/cat:cleanup"
)

// Guard evaluates commands and writes against the lock state of one project.
type Guard struct {
	root            string
	store           lock.Store
	clock           lock.Clock
	ttl             time.Duration
	prefixes        []string
	forceReleaseCmd string
	cleanupCmd      string
	logger          *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock sets the clock used for staleness.
func WithClock(c lock.Clock) Option {
	return func(g *Guard) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithTTL sets the lock staleness threshold. Non-positive keeps the default.
func WithTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithCommitPrefixes sets the message prefixes that mark issue commits.
func WithCommitPrefixes(prefixes []string) Option {
	return func(g *Guard) {
		if len(prefixes) > 0 {
			g.prefixes = prefixes
		}
	}
}

// WithToolNames sets the force-release and cleanup commands named in
// lock-artifact messages. Empty values keep the defaults.
func WithToolNames(forceRelease, cleanup string) Option {
	return func(g *Guard) {
		if forceRelease != "" {
			g.forceReleaseCmd = forceRelease
		}
		if cleanup != "" {
			g.cleanupCmd = cleanup
		}
	}
}

// WithLogger sets the logger for decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New returns a guard for the project rooted at root. A nil store reads the
// project's default locks directory.
func New(root string, store lock.Store, opts ...Option) *Guard {
	if store == nil {
		store = lock.NewFileStore(root)
	}
	g := &Guard{
		root:            root,
		store:           store,
		clock:           lock.SystemClock,
		ttl:             lock.DefaultTTL,
		prefixes:        command.DefaultCommitPrefixes,
		forceReleaseCmd: DefaultForceReleaseCommand,
		cleanupCmd:      DefaultCleanupCommand,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Request is a shell command about to run on behalf of a session.
type Request struct {
	Command    string
	WorkingDir string
	SessionID  string
}

// CheckCommand decides whether a shell command may run. Commands that remove
// nothing are allowed without further work. Lock artifacts are checked first
// for every removal program, including operands piped into xargs; recursive
// removals and worktree removals are then checked against the protected paths.
func (g *Guard) CheckCommand(req Request) (Decision, error) {
	if err := lock.ValidateSessionID(req.SessionID); err != nil {
		return Decision{}, fmt.Errorf("check command: %w", err)
	}
	if strings.TrimSpace(req.Command) == "" {
		return Allow(), nil
	}
	switch command.Classify(req.Command) {
	case command.KindRemoval, command.KindWorktreeRemoval:
	default:
		return Allow(), nil
	}

	cwd := command.ExpandHome(command.ExtractCdChain(req.Command, req.WorkingDir))
	cwdReal := layout.Resolve(req.WorkingDir, cwd)

	removals := command.ExtractRemovalTargets(req.Command)
	worktreeRemovals := command.ExtractWorktreeRemovals(req.Command)

	var dirTargets []string
	for _, r := range removals {
		for _, t := range r.Targets {
			if d := g.checkLockArtifact(cwdReal, t, false); d.Blocked {
				return g.logged(req, d), nil
			}
			if r.DeletesDirectories() {
				dirTargets = append(dirTargets, t)
			}
		}
		// Operands fed through xargs are only known by name; they are not
		// treated as directory removals.
		for _, t := range r.Piped {
			if d := g.checkLockArtifact(cwdReal, t, false); d.Blocked {
				return g.logged(req, d), nil
			}
		}
	}
	for _, wr := range worktreeRemovals {
		path := wr.Path
		if wr.Dir != "" && !strings.HasPrefix(command.ExpandHome(path), "/") {
			path = command.ExpandHome(wr.Dir) + "/" + path
		}
		if d := g.checkLockArtifact(cwdReal, path, false); d.Blocked {
			return g.logged(req, d), nil
		}
		dirTargets = append(dirTargets, path)
	}

	for _, t := range dirTargets {
		if d := g.checkProtected(req.SessionID, cwdReal, t); d.Blocked {
			return g.logged(req, d), nil
		}
		if d := g.checkLockArtifact(cwdReal, t, true); d.Blocked {
			return g.logged(req, d), nil
		}
	}
	g.logger.Debug("command allowed", "session", req.SessionID, "cwd", cwdReal)
	return Allow(), nil
}

func (g *Guard) logged(req Request, d Decision) Decision {
	attrs := []any{"session", req.SessionID, "target", d.Target}
	if d.Protected != nil {
		attrs = append(attrs, "reason", d.Protected.Reason, "protected", d.Protected.Path)
	}
	g.logger.Debug("blocked", attrs...)
	return d
}

// mainRoot returns the main worktree root above dir, falling back to the
// guard's project root.
func (g *Guard) mainRoot(dir string) string {
	if root, err := layout.FindMainRoot(dir); err == nil {
		return root
	}
	if g.root == "" {
		return ""
	}
	return layout.RealPath(g.root)
}
