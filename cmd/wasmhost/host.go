package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/wippyai/wasm-host/engine"
	"github.com/wippyai/wasm-host/limits"
	"github.com/wippyai/wasm-host/wasi/preview2"
	"github.com/wippyai/wasm-host/wasi/preview2/cli"
)

func addHostFlags(cmd *cobra.Command, invoke string) {
	cmd.Flags().StringArray("env", nil, "Environment variable KEY=VALUE (repeatable)")
	cmd.Flags().StringArray("arg", nil, "Guest argument (repeatable)")
	cmd.Flags().StringArray("mount", nil, "Preopen host:guest[:ro|rw] (repeatable)")
	cmd.Flags().StringArray("allow-net", nil, "Allow CIDR[:port|:start-end] (repeatable)")
	cmd.Flags().StringArray("allow-addr", nil, "Allow host:port, resolved now (repeatable)")
	cmd.Flags().Bool("inherit-network", false, "Allow every address and port")
	cmd.Flags().Bool("stdin", false, "Connect the guest to this process's stdin")

	cmd.Flags().Uint32("memory-limit-pages", 0, "Cap every memory in 64KiB pages (0: engine default)")
	cmd.Flags().Uint64("max-memory", 0, "Deny memory growth past this many bytes (0: unlimited)")
	cmd.Flags().Float64("grow-rate", 0, "Admit at most this many growths per second (0: unlimited)")
	cmd.Flags().Int("grow-burst", 1, "Burst for --grow-rate")

	cmd.Flags().String("invoke", invoke, "Export to call on the first instance (empty: none)")
	cmd.Flags().String("snapshot-out", "", "Write a snapshot to this file after the call")
	cmd.Flags().Bool("dump-table", false, "Print the resource table before exit")
}

// parseMount reads host:guest[:mode]. The mode defaults to ro.
func parseMount(spec string) (host, guest string, write bool, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return "", "", false, fmt.Errorf("invalid mount %q (expected host:guest[:ro|rw])", spec)
	}
	if len(parts) == 3 {
		switch parts[2] {
		case "ro":
		case "rw":
			write = true
		default:
			return "", "", false, fmt.Errorf("invalid mount mode %q (expected ro or rw)", parts[2])
		}
	}
	return parts[0], parts[1], write, nil
}

// parseNet reads CIDR, CIDR:port, CIDR:start-end or CIDR:start-. The range
// end is exclusive.
func parseNet(b *preview2.Builder, spec string) error {
	slash := strings.IndexByte(spec, '/')
	if slash < 0 {
		return fmt.Errorf("invalid network %q (expected CIDR)", spec)
	}
	cidr, ports := spec, ""
	if colon := strings.IndexByte(spec[slash:], ':'); colon >= 0 {
		cidr, ports = spec[:slash+colon], spec[slash+colon+1:]
	}
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return err
	}

	start, end, ranged := strings.Cut(ports, "-")
	switch {
	case ports == "":
		b.InsertIPNetPortAny(prefix)
	case !ranged:
		port, err := strconv.ParseUint(ports, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port in %q: %w", spec, err)
		}
		b.InsertIPNet(prefix, uint16(port))
	default:
		lo, err := strconv.ParseUint(start, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port range in %q: %w", spec, err)
		}
		var hi *uint16
		if end != "" {
			v, err := strconv.ParseUint(end, 10, 16)
			if err != nil {
				return fmt.Errorf("invalid port range in %q: %w", spec, err)
			}
			h := uint16(v)
			hi = &h
		}
		b.InsertIPNetPortRange(prefix, uint16(lo), hi)
	}
	return nil
}

func outputStream(w io.Writer) (preview2.OutputStream, preview2.IsATTY) {
	switch w {
	case os.Stdout:
		return preview2.Stdout(), isTerminal(os.Stdout)
	case os.Stderr:
		return preview2.Stderr(), isTerminal(os.Stderr)
	}
	return preview2.NewWriterOutputStream(w), preview2.IsATTYNo
}

func isTerminal(f *os.File) preview2.IsATTY {
	if term.IsTerminal(int(f.Fd())) {
		return preview2.IsATTYYes
	}
	return preview2.IsATTYNo
}

var openDir = preview2.OpenDir

// newBuilder grants exactly what the flags ask for. On error, directories
// already opened for --mount are closed.
func newBuilder(cmd *cobra.Command, log *zap.Logger) (_ *preview2.Builder, err error) {
	var opened []*preview2.Dir
	defer func() {
		if err != nil {
			for _, d := range opened {
				d.Drop()
			}
		}
	}()

	ctx := cmd.Context()
	flags := cmd.Flags()
	b := preview2.NewBuilder().WithLogger(log)

	stdout, stdoutTTY := outputStream(cmd.OutOrStdout())
	stderr, stderrTTY := outputStream(cmd.ErrOrStderr())
	b.Stdout(stdout, stdoutTTY).Stderr(stderr, stderrTTY)
	if inherit, _ := flags.GetBool("stdin"); inherit {
		b.Stdin(preview2.NewReaderInputStream(cmd.InOrStdin()), isTerminal(os.Stdin))
	}

	env, _ := flags.GetStringArray("env")
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --env %q (expected KEY=VALUE)", kv)
		}
		b.Env(k, v)
	}
	args, _ := flags.GetStringArray("arg")
	b.Args(args...)

	mounts, _ := flags.GetStringArray("mount")
	for _, spec := range mounts {
		host, guest, write, err := parseMount(spec)
		if err != nil {
			return nil, err
		}
		perms, filePerms := preview2.DirPermsRead, preview2.FilePermsRead
		if write {
			perms, filePerms = preview2.DirPermsAll, preview2.FilePermsAll
		}
		dir, err := openDir(host, perms, filePerms)
		if err != nil {
			return nil, err
		}
		opened = append(opened, dir)
		b.PreopenedDir(dir, guest)
	}

	if inherit, _ := flags.GetBool("inherit-network"); inherit {
		b.InheritNetwork()
	}
	nets, _ := flags.GetStringArray("allow-net")
	for _, spec := range nets {
		if err := parseNet(b, spec); err != nil {
			return nil, err
		}
	}
	addrs, _ := flags.GetStringArray("allow-addr")
	for _, hostport := range addrs {
		if err := b.InsertAddr(ctx, hostport); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func newLimiter(cmd *cobra.Command, log *zap.Logger) limits.Limiter {
	flags := cmd.Flags()
	maxMemory, _ := flags.GetUint64("max-memory")
	growRate, _ := flags.GetFloat64("grow-rate")
	growBurst, _ := flags.GetInt("grow-burst")

	var chain []limits.Limiter
	if maxMemory > 0 {
		chain = append(chain, limits.Quota{MaxMemoryBytes: maxMemory})
	}
	if growRate > 0 {
		chain = append(chain, limits.NewRate(rate.Limit(growRate), growBurst))
	}
	return limits.Logged(limits.Chain(chain...), log)
}

// session is one engine with one instantiation of the given modules.
type session struct {
	eng   *engine.Engine
	inst  *engine.Instantiation
	state *preview2.HostState
}

func openSession(cmd *cobra.Command, paths []string) (*session, error) {
	ctx := cmd.Context()
	log := engine.Logger()

	pages, _ := cmd.Flags().GetUint32("memory-limit-pages")
	eng, err := engine.New(ctx, engine.Config{MemoryLimitPages: pages, CloseOnContextDone: true})
	if err != nil {
		return nil, err
	}

	modules := make([]*engine.Module, 0, len(paths))
	for _, path := range paths {
		wasm, err := os.ReadFile(path)
		if err != nil {
			_ = eng.Close(ctx)
			return nil, err
		}
		mod, err := eng.Compile(ctx, path, wasm)
		if err != nil {
			_ = eng.Close(ctx)
			return nil, err
		}
		modules = append(modules, mod)
	}

	b, err := newBuilder(cmd, log)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}
	state, err := preview2.NewHostState(b)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}

	inst, err := eng.Instantiate(ctx, state, newLimiter(cmd, log), modules...)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}
	return &session{eng: eng, inst: inst, state: state}, nil
}

// invoke calls the --invoke export, if any, and prints its results. A guest
// exit with a non-zero status is returned as *cli.ExitError.
func (s *session) invoke(cmd *cobra.Command) error {
	export, _ := cmd.Flags().GetString("invoke")
	if export == "" {
		return nil
	}
	results, err := s.inst.Call(cmd.Context(), 0, export)
	var exit *sys.ExitError
	if errors.As(err, &exit) {
		if exit.ExitCode() == 0 {
			return nil
		}
		return &cli.ExitError{Code: exit.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("call %s: %w", export, err)
	}
	if len(results) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), resultStyle.Render(fmt.Sprintf("%s %v", export, results)))
	}
	return nil
}

func (s *session) dumpTable(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("resource table"))
	for _, e := range s.state.Table().Entries() {
		fmt.Fprintln(w, "  "+e.String())
	}
}

func (s *session) close(ctx context.Context) error {
	return multierr.Combine(s.inst.Close(ctx), s.eng.Close(ctx))
}

// finish handles the flags shared by run and restore after the call.
func (s *session) finish(cmd *cobra.Command) error {
	if dump, _ := cmd.Flags().GetBool("dump-table"); dump {
		s.dumpTable(cmd.ErrOrStderr())
	}
	out, _ := cmd.Flags().GetString("snapshot-out")
	if out == "" {
		return nil
	}
	return writeSnapshot(cmd.Context(), s.inst, out)
}
