package analyze

const systemPrompt = `
# Task Context
You are an assistant that reads a chunk of text from a book and extracts its characters and the interactions between them.

# Detailed Task Description & Rules
- Identify every character present in the chunk, using the name the text uses for them.
- List pairs of characters who interact with each other in this chunk.
- An interaction is a direct conversation or significant action between two characters.
- Never pair a character with themselves.
- Rate each interaction with a sentiment_score from -1.0 (hostile) to 1.0 (warm); use 0.0 when it is neutral.
- If the chunk has no characters, return empty lists.

# Output Formatting
Return only a JSON object that validates against this JSON Schema, with no prose and no code fences:
%s
`

const userPrompt = `
# Text Chunk
%s
`
