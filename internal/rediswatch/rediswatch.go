// Package rediswatch feeds key accesses observed on Redis traffic into a
// cluster's counter. It has two observation modes: a client-side Hook for
// applications that embed the tracker in their own traffic path, and a
// Monitor observer that follows a server's MONITOR stream so the standalone
// agent sees every client's accesses.
package rediswatch

import "strings"

// DefaultCommands cover the string and hash commands that dominate cache
// traffic. Multi-key commands count one access per key.
var DefaultCommands = []string{
	"get", "set", "getex", "getdel", "incr", "incrby",
	"mget", "exists",
	"hget", "hmget", "hgetall",
}

// multiKey marks commands whose arguments are all keys.
var multiKey = map[string]bool{
	"mget":   true,
	"exists": true,
	"del":    true,
	"unlink": true,
	"touch":  true,
}

type commandSet map[string]bool

func newCommandSet(cmds []string) commandSet {
	s := make(commandSet, len(cmds))
	for _, c := range cmds {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			s[c] = true
		}
	}
	return s
}

func argKey(a any) (string, bool) {
	switch v := a.(type) {
	case string:
		return v, v != ""
	case []byte:
		return string(v), len(v) > 0
	default:
		return "", false
	}
}
