package ai

// Task prompts for the OpenAI-compatible backend. Each prompt demands a
// bare JSON object so responses can be decoded without free-text cleanup
// beyond code-fence stripping.

const systemPrompt = `You are a document analysis assistant for a learning platform. You receive extracted document text and produce structured study aids. Always answer with a single JSON object and nothing else: no markdown fences, no commentary. Answer in the language of the document where the task produces prose.`

const summaryPrompt = `Refine the following document into a study summary of 3-5 sentences that captures the main argument and key facts.

Respond with JSON: {"summary": "..."}

Document type: %s

%s`

const conceptsPrompt = `Identify the 5-10 most important concepts a learner must understand in the following document. For each, give a name and a one-sentence description.

Respond with JSON: {"concepts": [{"name": "...", "description": "..."}]}

Document type: %s

%s`

const quizPrompt = `Write 5 multiple-choice quiz questions testing comprehension of the following document. Each question has 4 options, exactly one correct answer (repeated verbatim in "answer"), and a difficulty of "easy", "medium", or "hard".

Respond with JSON: {"questions": [{"question": "...", "options": ["...","...","...","..."], "answer": "...", "difficulty": "..."}]}

Document type: %s

%s`

const difficultyPrompt = `Assess the reading difficulty of the following document for a general adult audience. Consider vocabulary, sentence complexity, and assumed background knowledge.

Respond with JSON: {"difficulty": "beginner" | "intermediate" | "advanced"}

Document type: %s

%s`
