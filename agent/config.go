// Agent configuration types.

package agent

// Config holds agent configuration.
type Config struct {
	// Name identifies the agent in logs.
	Name string

	// SystemPrompt describes the mentor persona and the reply schema.
	SystemPrompt string

	// MaxFileChars truncates each file sent to the model, in bytes. Zero
	// means no limit.
	MaxFileChars int
}

// DefaultSystemPrompt asks for one JSON object per reply.
const DefaultSystemPrompt = `You are an AI Code Mentor pairing with a student inside their editor.
You receive every project file with its content, the active file, an optional selection and the student's message.
Answer the message. When a code change helps, propose exactly one.
Return ONLY a JSON object matching this schema:
{
  "action": "none | create_file | modify_file | insert_code",
  "target_file": "path of the file to create or change",
  "code": "the complete new content of target_file",
  "explanation": "what you changed and why, for the student"
}
Always send the full file content in "code", never a fragment or a diff.
Use "none" with an empty target_file and code when no change is needed.`

// DefaultConfig returns the mentor configuration.
func DefaultConfig() Config {
	return Config{
		Name:         "mentor",
		SystemPrompt: DefaultSystemPrompt,
		MaxFileChars: 60000,
	}
}
