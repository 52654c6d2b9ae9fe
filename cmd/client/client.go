package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

func main() {
	serverAddr := flag.String("server", "http://127.0.0.1:8080", "Base URL of the HTTP admission layer")
	wsAddr := flag.String("ws", "ws://127.0.0.1:8081", "Base URL of the websocket streaming channel")
	playerID := flag.String("playerid", "", "Player ID to register/use (compulsory, except for 'admin')")
	action := flag.String("action", "register", "Action to perform: ['register', 'order', 'cancel', 'inventory', 'subscribe', 'admin']")

	cardFlag := flag.String("card", "spade", "Card suit: spade, club, diamond, heart")
	directionFlag := flag.String("direction", "buy", "Order direction: buy or sell")
	price := flag.Int("price", 10, "Limit price (1-99)")
	adminAction := flag.String("admin-action", "start_game", "Admin action to request")

	flag.Parse()

	if *playerID == "" && *action != "admin" {
		fmt.Println("Error: -playerid is compulsory.")
		flag.Usage()
		return
	}

	switch strings.ToLower(*action) {
	case "register":
		post(*serverAddr+"/register_testnet", *playerID, nil)
	case "order":
		post(*serverAddr+"/order", *playerID, map[string]any{
			"card": *cardFlag, "direction": *directionFlag, "price": *price,
		})
	case "cancel":
		post(*serverAddr+"/cancel", *playerID, map[string]any{
			"card": *cardFlag, "direction": *directionFlag,
		})
	case "inventory":
		post(*serverAddr+"/inventory", *playerID, nil)
	case "admin":
		postAdmin(*serverAddr+"/admin", *adminAction)
	case "subscribe":
		subscribe(*wsAddr, *playerID)
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

func post(url, playerID string, body map[string]any) {
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("playerid", playerID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	fmt.Printf("-> %s\n%s\n", url, raw)
}

func postAdmin(url, action string) {
	payload, _ := json.Marshal(map[string]string{"action": action})
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("adminid", "admin")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	fmt.Printf("-> %s\n%s\n", url, raw)
}

func subscribe(wsAddr, playerID string) {
	conn, _, err := websocket.DefaultDialer.Dial(wsAddr, nil)
	if err != nil {
		log.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	sub, _ := json.Marshal(map[string]string{"action": "subscribe", "playerid": playerID})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		log.Fatalf("failed to send subscribe frame: %v", err)
	}

	fmt.Println("Subscribed, listening for events... (Ctrl+C to exit)")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("connection closed: %v", err)
			return
		}
		fmt.Printf("%s\n", msg)
	}
}
