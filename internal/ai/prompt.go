package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/taskchat/internal/model"
)

const systemInstruction = `You are a Task Management Assistant.
You help the user manage their tasks.
You have access to the user's current tasks in JSON format and the recent Chat History.

Your capabilities:
1. Answer questions about the tasks (e.g., "How many tasks?", "What is due?").
2. Answer questions about the conversation history.
3. Perform actions on tasks (Create, Update, Delete, Complete).

Context Awareness:
- You MUST use the "Chat History" section to understand the context.
- Resolve relative dates ("tomorrow", "next Friday") against the current date and time below.

Task Creation Workflow:
- When the user wants to create a task, you need: 'title', 'description', and 'dueDate'.
- If information is missing, ASK the user and return what you have so far in "pendingTask".
- When asking, provide 2 reasonable suggestions for the user to choose from.
- Set "pendingTask.isComplete" to true once the draft has everything it needs.
- Only generate a 'CREATE' action when you have sufficient information or the user asks to proceed with defaults.

Response Format:
You MUST ALWAYS respond with a valid JSON object. Do not include markdown formatting like ` + "```json" + `.
Structure:
{
  "text": "Your response message to the user",
  "suggestions": ["Option 1", "Option 2"],
  "action": { ... },
  "pendingTask": { "title": "...", "description": "...", "dueDate": "...", "priority": "high|medium|low", "isComplete": false },
  "relatedTask": { ...one task object copied from Current Tasks... },
  "relatedTasks": [ ...task objects copied from Current Tasks... ]
}
Only "text" is required.

Action Objects:
- CREATE: { "type": "CREATE", "task": { "title": "...", "description": "...", "dueDate": "ISO 8601 DateTime (e.g., 2024-01-15T14:30:00.000Z)", "priority": "high|medium|low" } }
- UPDATE: { "type": "UPDATE", "id": "...", "updates": { "title": "...", "description": "...", "dueDate": "...", "priority": "...", "isCompleted": true } }
- DELETE: { "type": "DELETE", "id": "..." }
- COMPLETE: { "type": "COMPLETE", "id": "..." }
- NONE: { "type": "NONE" }

Use task ids exactly as they appear in Current Tasks.
Important: Always use full ISO 8601 datetime format for dueDate (with time), not just date.`

// ChatPrompt holds everything rendered into a chat prompt.
type ChatPrompt struct {
	Now     time.Time
	Profile *model.UserProfile
	Tasks   []model.Task
	History []model.ChatMessage
	Message string
}

// Build renders the prompt: instructions with date and profile, the task
// snapshot as JSON, the history as "User:"/"Assistant:" lines, and finally
// the new user message. Output is deterministic for equal input.
func (p ChatPrompt) Build() string {
	var sb strings.Builder

	sb.WriteString(systemInstruction)
	sb.WriteString("\n\n")

	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	sb.WriteString(fmt.Sprintf("Current date and time: %s (%s)\n",
		now.Format(time.RFC3339), now.Format("Monday")))

	if profile := profileContext(p.Profile); profile != "" {
		sb.WriteString("\nUser Profile:\n")
		sb.WriteString(profile)
	}

	sb.WriteString("\nCurrent Tasks:\n")
	sb.WriteString(tasksJSON(p.Tasks))
	sb.WriteString("\n\nChat History:\n")
	sb.WriteString(renderHistory(p.History))
	sb.WriteString("\n\nUser Message: ")
	sb.WriteString(p.Message)
	sb.WriteString("\n")

	return sb.String()
}

func profileContext(p *model.UserProfile) string {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- Name: %s\n", p.Name))
	if p.Age > 0 {
		sb.WriteString(fmt.Sprintf("- Age: %d\n", p.Age))
	}
	if p.Gender != "" {
		sb.WriteString(fmt.Sprintf("- Gender: %s\n", p.Gender))
	}
	if p.Career != "" {
		sb.WriteString(fmt.Sprintf("- Career: %s\n", p.Career))
	}
	if p.Nationality != "" {
		sb.WriteString(fmt.Sprintf("- Nationality: %s\n", p.Nationality))
	}
	sb.WriteString("Address the user by name and tailor suggestions to their profile.\n")
	return sb.String()
}

func tasksJSON(tasks []model.Task) string {
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func renderHistory(history []model.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		speaker := "Assistant"
		if m.Role == model.RoleUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

// RefinePrompt asks for a grammar and style cleanup of a task.
func RefinePrompt(title, description string) string {
	return fmt.Sprintf(`You are a helpful writing assistant.
Your task is to improve the user's task title and description.
1. Correct any grammar or spelling mistakes.
2. Make the description more descriptive and actionable if it is too brief.
3. Keep the tone professional and concise.

Input Title: %q
Input Description: %q

Response Format:
You MUST respond with a valid JSON object.
{
  "title": "Improved Title",
  "description": "Improved Description"
}
`, title, description)
}

// SubtaskPrompt asks for 3 to 5 actionable steps for a task.
func SubtaskPrompt(title, description string) string {
	return fmt.Sprintf(`You are a productivity assistant.
Break the following task into 3 to 5 short, concrete, actionable steps, in the order they should be done.

Task Title: %q
Task Description: %q

Response Format:
You MUST respond with a valid JSON object.
{
  "subtasks": ["Step 1", "Step 2", "Step 3"]
}
`, title, description)
}
