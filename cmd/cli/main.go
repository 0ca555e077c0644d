package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "login":
		loginSubsystem(args)
	case "logout":
		logoutSubsystem(args)
	case "sessions":
		handleSessions(args)
	case "config":
		handleConfig(args)
	case "status":
		subsystemStatus(args)
	case "backup":
		backupSubsystem(args)
	case "restore":
		restoreSubsystem(args)
	case "reset":
		resetSubsystem(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hrstage - staging admin CLI

Usage:
  hrstage login <subsystem> -password <pw>
  hrstage logout <subsystem>
  hrstage sessions <list|logout-all>
  hrstage config <list|get|set> <subsystem> [category] [-file f]
  hrstage status <subsystem>
  hrstage backup <subsystem> [-out file]
  hrstage restore <subsystem> -file <backup.json>
  hrstage reset <subsystem>

Environment:
  HRSTAGE_API   API base URL (default http://localhost:8080)`)
}

func loginSubsystem(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: hrstage login <subsystem> -password <pw>")
		return
	}
	subsystem := args[0]

	fs := flag.NewFlagSet("login", flag.ExitOnError)
	password := fs.String("password", "", "admin password")
	fs.Parse(args[1:])

	if *password == "" {
		fmt.Println("Error: password is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"password": *password}
	data, _ := json.Marshal(payload)

	resp, result, err := doRequest("POST", "/api/subsystems/"+subsystem+"/login", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Admin access granted: %v\n", result["displayName"])
	} else {
		fmt.Printf("✗ Login failed: %v\n", result["error"])
	}
}

func logoutSubsystem(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: hrstage logout <subsystem>")
		return
	}
	subsystem := args[0]

	resp, result, err := doRequest("POST", "/api/subsystems/"+subsystem+"/logout", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Logged out of %v\n", result["displayName"])
	} else {
		fmt.Printf("✗ Logout failed: %v\n", result["error"])
	}
}

func handleSessions(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: hrstage sessions <list|logout-all>")
		return
	}

	switch args[0] {
	case "list":
		resp, result, err := doRequest("GET", "/api/sessions", nil)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if resp.StatusCode != 200 {
			fmt.Printf("✗ %v\n", result["error"])
			return
		}

		active, _ := result["active"].(map[string]interface{})
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SUBSYSTEM\tADMIN")
		for subsystem, flag := range active {
			fmt.Fprintf(w, "%s\t%v\n", subsystem, flag)
		}
		w.Flush()
	case "logout-all":
		resp, result, err := doRequest("POST", "/api/sessions/logout-all", nil)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if resp.StatusCode == 200 {
			fmt.Println("✓ Logged out of all subsystems")
		} else {
			fmt.Printf("✗ %v\n", result["error"])
		}
	default:
		fmt.Printf("unknown sessions command: %s\n", args[0])
	}
}

func handleConfig(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: hrstage config <list|get|set> <subsystem> [category]")
		return
	}

	subCmd := args[0]
	subsystem := args[1]

	switch subCmd {
	case "list":
		resp, result, err := doRequest("GET", "/api/subsystems/"+subsystem+"/config", nil)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if resp.StatusCode != 200 {
			fmt.Printf("✗ %v\n", result["error"])
			return
		}
		categories, _ := result["categories"].([]interface{})
		for _, c := range categories {
			fmt.Println(c)
		}
	case "get":
		if len(args) < 3 {
			fmt.Println("Usage: hrstage config get <subsystem> <category>")
			return
		}
		resp, result, err := doRequest("GET", "/api/subsystems/"+subsystem+"/config/"+args[2], nil)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if resp.StatusCode != 200 {
			fmt.Printf("✗ %v\n", result["error"])
			return
		}
		pretty, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(pretty))
	case "set":
		if len(args) < 3 {
			fmt.Println("Usage: hrstage config set <subsystem> <category> -file <doc.json>")
			return
		}
		category := args[2]

		fs := flag.NewFlagSet("set", flag.ExitOnError)
		file := fs.String("file", "", "JSON document to store")
		fs.Parse(args[3:])

		if *file == "" {
			fmt.Println("Error: -file is required")
			return
		}
		doc, err := os.ReadFile(*file)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		resp, result, err := doRequest("PUT", "/api/subsystems/"+subsystem+"/config/"+category, bytes.NewReader(doc))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if resp.StatusCode == 200 {
			fmt.Printf("✓ Saved %s/%s\n", subsystem, category)
		} else {
			fmt.Printf("✗ %v\n", result["error"])
		}
	default:
		fmt.Printf("unknown config command: %s\n", subCmd)
	}
}

func subsystemStatus(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: hrstage status <subsystem>")
		return
	}

	resp, result, err := doRequest("GET", "/api/subsystems/"+args[0]+"/status", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if resp.StatusCode != 200 {
		fmt.Printf("✗ %v\n", result["error"])
		return
	}

	fmt.Printf("%v: %v (%v/%v configured)\n",
		result["displayName"], result["verdict"], result["configuredCount"], result["expectedCount"])

	categories, _ := result["categories"].([]interface{})
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tCONFIGURED")
	for _, c := range categories {
		entry, _ := c.(map[string]interface{})
		fmt.Fprintf(w, "%v\t%v\n", entry["name"], entry["configured"])
	}
	w.Flush()
}

func backupSubsystem(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: hrstage backup <subsystem> [-out file]")
		return
	}
	subsystem := args[0]

	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	out := fs.String("out", "", "write bundle to file instead of stdout")
	fs.Parse(args[1:])

	resp, result, err := doRequest("POST", "/api/subsystems/"+subsystem+"/backup", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if resp.StatusCode != 200 {
		fmt.Printf("✗ %v\n", result["error"])
		return
	}

	pretty, _ := json.MarshalIndent(result, "", "  ")
	if *out == "" {
		fmt.Println(string(pretty))
		return
	}
	if err := os.WriteFile(*out, pretty, 0600); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("✓ Backup written to %s\n", *out)
}

func restoreSubsystem(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: hrstage restore <subsystem> -file <backup.json>")
		return
	}
	subsystem := args[0]

	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	file := fs.String("file", "", "backup bundle to restore")
	fs.Parse(args[1:])

	if *file == "" {
		fmt.Println("Error: -file is required")
		return
	}
	bundle, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	resp, result, err := doRequest("POST", "/api/subsystems/"+subsystem+"/restore", bytes.NewReader(bundle))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	switch resp.StatusCode {
	case 200:
		fmt.Printf("✓ Restored: %v\n", result["restored"])
	case 207:
		fmt.Printf("! Partial restore.\n  restored: %v\n  failed: %v\n", result["restored"], result["failedCategories"])
	default:
		fmt.Printf("✗ %v\n", result["error"])
	}
}

func resetSubsystem(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: hrstage reset <subsystem>")
		return
	}
	subsystem := args[0]

	resp, result, err := doRequest("POST", "/api/subsystems/"+subsystem+"/reset", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if resp.StatusCode != 200 {
		fmt.Printf("✗ %v\n", result["error"])
		return
	}

	token, _ := result["confirmToken"].(string)
	if token == "" {
		fmt.Printf("✗ unexpected response: %v\n", result)
		return
	}

	fmt.Printf("! %v\n", result["warning"])
	fmt.Print("Type the subsystem name to confirm: ")
	var typed string
	fmt.Scanln(&typed)
	if typed != subsystem {
		fmt.Println("Aborted.")
		return
	}

	payload, _ := json.Marshal(map[string]string{"confirmToken": token})
	resp, result, err = doRequest("POST", "/api/subsystems/"+subsystem+"/reset", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Reset complete, deleted: %v\n", result["deletedCategories"])
	} else {
		fmt.Printf("✗ %v\n", result["error"])
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("HRSTAGE_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func sessionFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.hrstage/session"
}

func saveSessionToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.hrstage", 0700)
	return os.WriteFile(sessionFile(), []byte(token), 0600)
}

func loadSessionToken() string {
	data, _ := os.ReadFile(sessionFile())
	return string(data)
}

// doRequest sends one API call, reusing the saved session token and capturing
// a newly minted one from the Set-Cookie header.
func doRequest(method, path string, body io.Reader) (*http.Response, map[string]interface{}, error) {
	req, err := http.NewRequest(method, getAPIURL()+path, body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := loadSessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "hrstage_session" && cookie.Value != "" {
			saveSessionToken(cookie.Value)
		}
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp, result, nil
}
