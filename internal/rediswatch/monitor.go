package rediswatch

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/hotkeyd/hotkeyd/internal/counter"
	"github.com/hotkeyd/hotkeyd/internal/observability"
)

// ownKeyPrefix marks keys the agent writes itself (report sink); counting
// them would make the agent its own hottest client.
const ownKeyPrefix = "hotkeys:"

// Monitor follows one server's MONITOR stream and feeds the keys of watched
// commands into the cluster's counter. MONITOR shows traffic from every
// connected client, so the agent observes accesses it did not issue.
type Monitor struct {
	cluster string
	rdb     *redis.Client
	c       counter.Interface
	watched commandSet
	log     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a monitor feeding c from rdb's MONITOR stream. With no
// commands given, DefaultCommands are watched. The client should be built
// without a read deadline; the stream idles between commands.
func NewMonitor(cluster string, rdb *redis.Client, c counter.Interface, log *slog.Logger, commands ...string) *Monitor {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	return &Monitor{
		cluster: cluster,
		rdb:     rdb,
		c:       c,
		watched: newCommandSet(commands),
		log:     log,
	}
}

func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	lines := make(chan string, 256)
	mon := m.rdb.Monitor(ctx, lines)
	mon.Start()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer mon.Stop()
		m.consume(ctx, lines)
	}()

	m.log.Info("monitor started", "cluster", m.cluster)
}

func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.log.Info("monitor stopped", "cluster", m.cluster)
}

// consume drains lines until the context ends or the stream closes.
func (m *Monitor) consume(ctx context.Context, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			m.handle(line)
		}
	}
}

func (m *Monitor) handle(line string) {
	name, args, ok := parseMonitorLine(line)
	if !ok || !m.watched[name] || len(args) == 0 {
		observability.IncMonitorLine(m.cluster, false)
		return
	}

	keys := args[:1]
	if multiKey[name] {
		keys = args
	}
	counted := false
	for _, k := range keys {
		if k == "" || strings.HasPrefix(k, ownKeyPrefix) {
			continue
		}
		m.c.Incr(k)
		counted = true
	}
	observability.IncMonitorLine(m.cluster, counted)
}

// parseMonitorLine splits one MONITOR record into the lowercased command
// name and its arguments. A record looks like
//
//	1700000000.123456 [0 127.0.0.1:51850] "GET" "user:42"
//
// Lines without that shape (the initial "OK" status, partial reads) report
// ok=false.
func parseMonitorLine(line string) (name string, args []string, ok bool) {
	i := strings.Index(line, `] "`)
	if i < 0 {
		return "", nil, false
	}
	fields := splitQuoted(line[i+1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// splitQuoted extracts the "..."-delimited tokens of a MONITOR record,
// decoding the escapes redis emits for quotes, backslashes, control bytes
// and non-printable \xHH sequences.
func splitQuoted(s string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		var b strings.Builder
		i++
		for i < len(s) && s[i] != '"' {
			c := s[i]
			if c != '\\' || i+1 >= len(s) {
				b.WriteByte(c)
				i++
				continue
			}
			i++
			switch e := s[i]; e {
			case 'n':
				b.WriteByte('\n')
				i++
			case 'r':
				b.WriteByte('\r')
				i++
			case 't':
				b.WriteByte('\t')
				i++
			case 'a':
				b.WriteByte('\a')
				i++
			case 'b':
				b.WriteByte('\b')
				i++
			case 'x':
				if i+3 <= len(s) {
					if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
						b.WriteByte(byte(v))
						i += 3
						continue
					}
				}
				b.WriteByte(e)
				i++
			default:
				// covers \" and \\
				b.WriteByte(e)
				i++
			}
		}
		out = append(out, b.String())
	}
	return out
}
