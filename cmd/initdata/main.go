// Command initdata seeds a running server with a demo account, fake notes
// and one shared note, going through the public API.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	baseURL   = flag.String("url", env("API_BASE_URL", "http://localhost:8080"), "Server base URL")
	email     = flag.String("email", env("EMAIL", "demo@example.com"), "User e-mail")
	pass      = flag.String("pass", env("PASSWORD", "Password123"), "User password")
	friend    = flag.String("friend", env("FRIEND_EMAIL", "friend@example.com"), "Second account the first note is shared with")
	nNotes    = flag.Int("n", envInt("COUNT", 50), "How many notes to create")
	maxBlocks = flag.Int("blocks", envInt("BLOCKS", 4), "Maximum content blocks per note")
)

var client = &http.Client{Timeout: 30 * time.Second}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

// envelope is the shape of every API response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// call sends body as JSON and decodes the envelope data into out. A
// non-2xx status or success=false is an error.
func call(method, path, token string, body, out any) (int, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, *baseURL+path, r)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: undecodable body (%d): %s", method, path, resp.StatusCode, raw)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return resp.StatusCode, fmt.Errorf("%s %s failed (%d): %s", method, path, resp.StatusCode, env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		return resp.StatusCode, json.Unmarshal(env.Data, out)
	}
	return resp.StatusCode, nil
}

func main() {
	flag.Parse()
	gofakeit.Seed(time.Now().UnixNano())

	fmt.Printf("Init account %s (notes=%d) on %s\n", *email, *nNotes, *baseURL)

	token, err := ensureUser(*email, gofakeit.Name())
	if err != nil {
		fatal(err)
	}
	friendToken, err := ensureUser(*friend, gofakeit.Name())
	if err != nil {
		fatal(err)
	}

	ids, err := createNotes(token, *nNotes)
	if err != nil {
		fatal(err)
	}
	if len(ids) > 0 {
		if err := shareFirst(token, friendToken, ids[0]); err != nil {
			fatal(err)
		}
	}

	fmt.Println("✔ done")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "FATAL:", err)
	os.Exit(1)
}

// ensureUser signs up, or signs in when the account already exists.
func ensureUser(addr, name string) (string, error) {
	var auth struct {
		Token string `json:"token"`
	}

	status, err := call(http.MethodPost, "/api/v1/auth/sign-up", "",
		map[string]string{"email": addr, "name": name, "password": *pass}, &auth)
	if err == nil {
		fmt.Println("• signed-up", addr)
		return auth.Token, nil
	}
	if status != http.StatusConflict {
		return "", err
	}

	if _, err := call(http.MethodPost, "/api/v1/auth/sign-in", "",
		map[string]string{"email": addr, "password": *pass}, &auth); err != nil {
		return "", err
	}
	fmt.Println("• signed-in", addr)
	return auth.Token, nil
}

func fakeBlocks() []map[string]any {
	n := gofakeit.Number(1, *maxBlocks)
	blocks := make([]map[string]any, n)
	for i := range blocks {
		blocks[i] = map[string]any{
			"id":    fmt.Sprintf("b%d", i+1),
			"type":  "text",
			"value": gofakeit.Paragraph(1, 4, 30, " "),
			"position": map[string]any{
				"x": gofakeit.Float64Range(0, 800), "y": float64(i) * 120, "zIndex": i,
			},
		}
	}
	return blocks
}

func createNotes(token string, total int) ([]string, error) {
	ids := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		var out struct {
			Note struct {
				ID string `json:"id"`
			} `json:"note"`
		}
		note := map[string]any{
			"title":       gofakeit.Sentence(3),
			"description": gofakeit.Sentence(8),
			"content":     fakeBlocks(),
		}
		if _, err := call(http.MethodPost, "/api/v1/notes", token, note, &out); err != nil {
			return ids, fmt.Errorf("create note %d: %w", i, err)
		}
		ids = append(ids, out.Note.ID)

		if i%10 == 0 || i == total {
			fmt.Printf("  … %d/%d\n", i, total)
		}
	}
	return ids, nil
}

// shareFirst issues a view link on noteID and redeems it as the friend.
func shareFirst(ownerToken, friendToken, noteID string) error {
	var link struct {
		Token string `json:"token"`
	}
	if _, err := call(http.MethodPost, "/api/v1/notes/"+noteID+"/generate-share-link", ownerToken,
		map[string]any{"level": "view", "ttl_hours": 24}, &link); err != nil {
		return err
	}
	if link.Token == "" {
		return errors.New("share link response carried no token")
	}
	if _, err := call(http.MethodPost, "/api/v1/notes/accept-share-link", friendToken,
		map[string]string{"token": link.Token}, nil); err != nil {
		return err
	}
	fmt.Println("• shared", noteID, "with", *friend)
	return nil
}
