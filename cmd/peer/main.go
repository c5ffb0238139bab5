// Command peer runs a single node of the overlay: it binds a local
// address, optionally joins an existing mesh through a bootstrap peer,
// and drives an interactive stdin command loop until `end` is typed.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli"

	"github.com/lucadibello/p2p-chat/pkg/overlay/core"
	"github.com/lucadibello/p2p-chat/pkg/overlay/definition"
	"github.com/lucadibello/p2p-chat/pkg/overlay/ids"
	"github.com/lucadibello/p2p-chat/pkg/overlay/metrics"
	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
)

func main() {
	app := cli.NewApp()
	app.Name = "peer"
	app.Usage = "join or start a peer-to-peer chat overlay mesh"
	app.ArgsUsage = "<local_ip:port> [peer_ip:port]"
	app.Flags = []cli.Flag{
		cli.Uint64Flag{
			Name:  "desired-id",
			Usage: "use this value as the initial self id instead of a random one",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "one of DEBUG, INFO, WARNING, ERROR, CRITICAL",
			Value: "INFO",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	localAddr := c.Args().Get(0)
	peerAddr := c.Args().Get(1)

	if err := validateAddr(localAddr); err != nil {
		return cli.NewExitError(fmt.Sprintf("%v: %s", types.ErrValidation, err), 1)
	}
	if peerAddr != "" {
		if err := validateAddr(peerAddr); err != nil {
			return cli.NewExitError(fmt.Sprintf("%v: %s", types.ErrValidation, err), 1)
		}
	}

	level := c.String("log-level")
	if !definition.ValidLevel(level) {
		return cli.NewExitError(fmt.Sprintf("%v: unknown --log-level %q", types.ErrValidation, level), 1)
	}

	log := definition.NewDefaultLogger()
	log.SetLevel(definition.ParseLevel(level))

	var selfID types.PeerId
	if c.IsSet("desired-id") {
		selfID = types.PeerId(c.Uint64("desired-id"))
	} else {
		id, err := ids.FreshRandomId()
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("%v: %s", types.ErrValidation, err), 1)
		}
		selfID = id
	}

	state := core.NewNodeState(selfID, log, definition.DefaultConfiguration())
	node := core.NewNode(state, localAddr)
	node.Listen()

	if peerAddr != "" {
		if err := node.Join(peerAddr); err != nil {
			return cli.NewExitError(fmt.Sprintf("failed to join %s: %v", peerAddr, err), 1)
		}
	}
	state.LockSelfId()

	log.Infof("self id: %s", state.SelfId())
	runCommandLoop(node, log)

	node.Exit()
	return nil
}

// validateAddr enforces spec.md §6's literal rule: an IPv4 dotted-quad
// host and a port in 1..65535.
func validateAddr(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s is not host:port", addr)
	}
	if net.ParseIP(host).To4() == nil {
		return fmt.Errorf("%s is not an IPv4 dotted-quad", host)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%s is not a valid port", portStr)
	}
	return nil
}

// runCommandLoop implements spec.md §6's interactive commands: end,
// table, buffer, metrics and "<id> <text>". It returns once `end` is
// read or stdin closes.
func runCommandLoop(node *core.Node, log definition.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "end":
			return
		case line == "table":
			printTable(node)
		case line == "buffer":
			printBuffer(node)
		case line == "metrics":
			printMetrics(node, log)
		default:
			handleSend(node, log, line)
		}
	}
}

func printTable(node *core.Node) {
	for _, entry := range node.TableSnapshot() {
		if entry.Entry.Kind == types.Direct {
			fmt.Printf("%s: direct\n", entry.Id)
		} else {
			fmt.Printf("%s: via %s\n", entry.Id, entry.Entry.Via)
		}
	}
}

func printBuffer(node *core.Node) {
	for dest, count := range node.BufferSnapshot() {
		fmt.Printf("%s: %d\n", dest, count)
	}
}

func printMetrics(node *core.Node, log definition.Logger) {
	direct, remote := 0, 0
	for _, entry := range node.TableSnapshot() {
		if entry.Entry.Kind == types.Direct {
			direct++
		} else {
			remote++
		}
	}
	snap := metrics.Snapshot{
		DirectPeers:   direct,
		RemotePeers:   remote,
		PendingTotal:  sumBuffer(node.BufferSnapshot()),
		ActiveWorkers: node.State.ActiveWorkers(),
	}
	rendered, err := metrics.Render(snap)
	if err != nil {
		log.Errorf("failed to render metrics: %v", err)
		return
	}
	fmt.Print(rendered)
}

func sumBuffer(sizes map[types.PeerId]int) int {
	total := 0
	for _, n := range sizes {
		total += n
	}
	return total
}

// handleSend parses "<id> <text>" and issues the send command, per
// spec.md §6: id must parse as an integer, text is the remainder after
// the first space.
func handleSend(node *core.Node, log definition.Logger, line string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 {
		log.Warnf("unrecognized command: %q", line)
		return
	}
	raw, text := parts[0], parts[1]

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Warnf("unrecognized command: %q", line)
		return
	}

	if sendErr := node.Send(types.PeerId(id), text); sendErr != nil {
		log.Warnf("send failed: %v", sendErr)
	}
}
