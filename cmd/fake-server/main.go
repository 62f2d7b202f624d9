// ABOUTME: Minimal control server for poking at the agent locally.
// ABOUTME: Usage: fake-server [-addr :8765]; type "ping <host>" or "tracert <host>".

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"

	"github.com/chrsnv/ort-agent/internal/session"
)

var upgrader = websocket.Upgrader{}

// hub keeps the most recently registered agent connection.
type hub struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (h *hub) set(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != nil {
		h.conn.Close()
	}
	h.conn = conn
}

func (h *hub) send(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return fmt.Errorf("no agent connected")
	}
	return h.conn.WriteJSON(v)
}

func main() {
	addr := flag.String("addr", ":8765", "listen address")
	flag.Parse()

	h := &hub{}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		h.set(conn)
		go serveAgent(conn)
	})

	go func() {
		log.Printf("listening on %s", *addr)
		if err := http.ListenAndServe(*addr, nil); err != nil {
			log.Fatal(err)
		}
	}()

	fmt.Println(`Commands: "ping <host>", "tracert <host>", "quit"`)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			return
		}
		if len(fields) != 2 {
			fmt.Println("expected: <command> <target>")
			continue
		}

		msg := session.ServerMessage{Type: session.TypeCommand, Command: fields[0], Target: fields[1]}
		if err := h.send(msg); err != nil {
			color.Red("send failed: %v", err)
		}
	}
}

// serveAgent prints everything one agent sends until its connection drops.
func serveAgent(conn *websocket.Conn) {
	defer conn.Close()

	var reg session.Registration
	if err := conn.ReadJSON(&reg); err != nil {
		log.Printf("no registration: %v", err)
		return
	}
	color.Green("agent registered: agreement=%s city=%s os=%s host=%s",
		reg.Data.AgreementID, reg.Data.City, reg.Data.OS, reg.Data.Hostname)

	for {
		var res session.Result
		if err := conn.ReadJSON(&res); err != nil {
			log.Printf("agent disconnected: %v", err)
			return
		}
		if strings.HasPrefix(res.Result, "Error:") {
			color.Red("%s %s -> %s", res.Command, res.Target, res.Result)
		} else {
			color.Cyan("%s %s -> %s", res.Command, res.Target, res.Result)
		}
	}
}
