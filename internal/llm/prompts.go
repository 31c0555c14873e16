package llm

// Prompts instruct the model to answer with a single JSON object matching
// the recipe shape. Parsing tolerates a fenced code block around the JSON.

const extractPromptTemplate = `You are a recipe extraction assistant. Extract the recipe from the text
below into JSON. Respond with a single JSON object and nothing else:

{
  "name": "recipe name",
  "ingredients": ["one ingredient per entry, with quantities"],
  "instructions": ["one step per entry"],
  "makes_min": null or integer,
  "makes_max": null or integer,
  "makes_unit": "servings, cookies, loaves, ... or empty"
}

Rules:
- Prefer ingredients stated explicitly in the text over inferred ones.
- Keep ingredient lines and steps in the order they appear.
- If the text states a single yield ("serves 4"), set both makes_min and
  makes_max to it.
- If no recipe is present, return {"name": "", "ingredients": [], "instructions": []}.

Text:
{{.Text}}
`

const modifyPromptTemplate = `You are a recipe modification assistant. Apply the requested change to the
recipe below and respond with the complete modified recipe as a single JSON
object in this shape and nothing else:

{
  "name": "recipe name",
  "ingredients": ["one ingredient per entry, with quantities"],
  "instructions": ["one step per entry"],
  "makes_min": null or integer,
  "makes_max": null or integer,
  "makes_unit": "servings, cookies, loaves, ... or empty"
}

Rules:
- Change only what the request requires; keep everything else as-is.
- Keep list ordering stable except where the request demands otherwise.

Current recipe:
{{.Recipe}}

Requested change:
{{.Request}}
`
