package core

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
)

// RunListener binds addr and accepts inbound connections until
// node.ExitRequested becomes true, spawning a server-side worker per
// accepted connection while node.ActiveWorkers stays under
// node.Config.ConnectionCap (spec.md §4.9, §5). It blocks until the
// listener itself stops; callers typically invoke it via node.Spawn.
func RunListener(node *NodeState, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %w", types.ErrTransport, addr, err)
	}
	defer ln.Close()

	node.Log.Infof("listening on %s", addr)

	for !node.ExitRequested() {
		if tcpLn, ok := ln.(*net.TCPListener); ok {
			_ = tcpLn.SetDeadline(time.Now().Add(node.Config.PollInterval))
		}

		conn, err := ln.Accept()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if node.ExitRequested() {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) {
				node.Log.Warnf("accept error: %v", netErr)
				continue
			}
			return fmt.Errorf("%w: accept on %s: %w", types.ErrTransport, addr, err)
		}

		if int(node.ActiveWorkers()) >= node.Config.ConnectionCap {
			node.Log.Warnf("connection cap reached (%d), rejecting %s", node.Config.ConnectionCap, conn.RemoteAddr())
			conn.Close()
			continue
		}

		node.Spawn(func() {
			RunServerWorker(node, conn)
		})
	}
	return nil
}
