// seed_team.go: standalone script to seed members from a YAML roster and
// tasks from a TODO.md via the Concord API.
//
// Usage:
//
//	go run scripts/seed_team.go -team team.yaml -todo /path/to/TODO.md -api http://localhost:8700
//
// team.yaml:
//
//	members:
//	  - name: ada
//	    skills: [go, postgres]
//	    elements: {wood: 70, water: 40}
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type roster struct {
	Members []member `yaml:"members"`
}

type member struct {
	Name     string             `yaml:"name" json:"name"`
	Skills   []string           `yaml:"skills" json:"skills,omitempty"`
	Elements map[string]float64 `yaml:"elements" json:"elements,omitempty"`
}

type task struct {
	Title          string   `json:"title"`
	Priority       string   `json:"priority,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
	Element        string   `json:"element,omitempty"`

	done bool
}

// Priority emoji to S/A/B/C
var priorityMap = map[string]string{
	"🔴": "S",
	"🟠": "A",
	"🟡": "B",
	"🟢": "C",
}

// Sections to skip
var skipSections = map[string]bool{
	"personal":        true,
	"career":          true,
	"health":          true,
	"growth":          true,
	"personal/career": true,
}

func main() {
	teamPath := flag.String("team", "", "path to a YAML member roster")
	todoPath := flag.String("todo", "", "path to TODO.md file")
	apiURL := flag.String("api", "http://localhost:8700", "Concord API base URL")
	dryRun := flag.Bool("dry-run", false, "print records without posting")
	flag.Parse()

	if *teamPath == "" && *todoPath == "" {
		log.Fatal("nothing to seed: pass -team and/or -todo")
	}

	var members []member
	if *teamPath != "" {
		r, err := loadRoster(*teamPath)
		if err != nil {
			log.Fatalf("load roster: %v", err)
		}
		members = r.Members
		log.Printf("parsed %d members from %s", len(members), *teamPath)
	}

	var tasks []task
	if *todoPath != "" {
		t, err := parseTodo(*todoPath)
		if err != nil {
			log.Fatalf("parse TODO.md: %v", err)
		}
		tasks = t
		log.Printf("parsed %d tasks from %s", len(tasks), *todoPath)
	}

	if *dryRun {
		for i, m := range members {
			fmt.Printf("member [%d] %s (skills=%s)\n", i+1, m.Name, strings.Join(m.Skills, ","))
		}
		for i, t := range tasks {
			fmt.Printf("task [%d] %s (priority=%s, skills=%s, element=%s, done=%v)\n",
				i+1, t.Title, t.Priority, strings.Join(t.RequiredSkills, ","), t.Element, t.done)
		}
		return
	}

	client := &http.Client{}
	created, skipped := 0, 0
	for _, m := range members {
		if _, err := post(client, *apiURL+"/api/v1/members", m); err != nil {
			log.Printf("skip member %q: %v", m.Name, err)
			skipped++
			continue
		}
		created++
	}
	for _, t := range tasks {
		id, err := post(client, *apiURL+"/api/v1/tasks", t)
		if err != nil {
			log.Printf("skip task %q: %v", t.Title, err)
			skipped++
			continue
		}
		created++
		if t.done {
			if err := patch(client, *apiURL+"/api/v1/tasks/"+id+"/status", map[string]interface{}{
				"status": "completed", "progress": 100,
			}); err != nil {
				log.Printf("could not complete %q: %v", t.Title, err)
			}
		}
	}

	log.Printf("done: %d created, %d skipped", created, skipped)
}

func loadRoster(path string) (*roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func parseTodo(path string) ([]task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tasks []task
	var currentSection string
	var skipCurrent bool
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Text()

		// Detect section headers
		if strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "# ") {
			currentSection = strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "# ")))
			skipCurrent = false
			for skip := range skipSections {
				if strings.Contains(currentSection, skip) {
					skipCurrent = true
					break
				}
			}
			continue
		}
		if skipCurrent {
			continue
		}

		// Parse TODO items: - [ ] or - [x]
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- [") {
			continue
		}
		isDone := strings.HasPrefix(trimmed, "- [x]") || strings.HasPrefix(trimmed, "- [X]")
		text := trimmed
		if isDone {
			text = strings.TrimPrefix(text, "- [x] ")
			text = strings.TrimPrefix(text, "- [X] ")
		} else {
			text = strings.TrimPrefix(text, "- [ ] ")
		}

		t := task{done: isDone}
		for emoji, p := range priorityMap {
			if strings.Contains(text, emoji) {
				t.Priority = p
				text = strings.TrimSpace(strings.ReplaceAll(text, emoji, ""))
				break
			}
		}
		t.Title = text
		skill, element := deriveSkillAndElement(currentSection)
		if skill != "" {
			t.RequiredSkills = []string{skill}
		}
		t.Element = element
		tasks = append(tasks, t)
	}
	return tasks, scanner.Err()
}

// deriveSkillAndElement maps a TODO section to a skill tag and a dominant
// element hint.
func deriveSkillAndElement(section string) (string, string) {
	switch {
	case strings.Contains(section, "infra"):
		return "infrastructure", "metal"
	case strings.Contains(section, "product"):
		return "product", "wood"
	case strings.Contains(section, "ops") || strings.Contains(section, "operation"):
		return "operations", "earth"
	case strings.Contains(section, "research"):
		return "research", "water"
	case strings.Contains(section, "security"):
		return "security", "metal"
	case strings.Contains(section, "launch") || strings.Contains(section, "marketing"):
		return "marketing", "fire"
	case strings.Contains(section, "api"):
		return "api", "wood"
	default:
		return section, ""
	}
}

func post(client *http.Client, url string, body interface{}) (string, error) {
	data, _ := json.Marshal(body)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var out struct {
		TaskID   string `json:"task_id"`
		MemberID string `json:"member_id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out.TaskID != "" {
		return out.TaskID, nil
	}
	return out.MemberID, nil
}

func patch(client *http.Client, url string, body interface{}) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPatch, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
