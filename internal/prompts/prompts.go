package prompts

import "fmt"

// ============================================================================
// Extraction Prompts
// ============================================================================

// Every extraction prompt shares the same output contract: a single JSON
// object with the requested field, a confidence score, and a reference
// to where in the asset the answer was found. Downstream parsing depends
// on this exact shape.
const jsonContract = `Respond with a single JSON object and nothing else, using exactly these keys:
{
  "%[1]s": <the extracted value, or null if not present>,
  "%[1]s_confidence": <a number between 0 and 1>,
  "%[1]s_reference": "<short quote or location supporting the answer>"
}
Do not wrap the JSON in markdown fences or add commentary.`

// DocumentExtractionPrompt builds the extraction instruction for a
// document asset. The document itself travels alongside as an attached
// file, so the prompt only carries the instruction and contract.
func DocumentExtractionPrompt(field, description string) string {
	return fmt.Sprintf(`You are a document analysis expert. Read the attached document carefully and extract the following:

Field: %s
Instruction: %s

%s`, field, description, fmt.Sprintf(jsonContract, field))
}

// ImageExtractionPrompt builds the extraction instruction for an image
// asset. The image is passed to the model directly.
func ImageExtractionPrompt(field, description string) string {
	return fmt.Sprintf(`You are an image analysis expert. Examine the provided image and extract the following:

Field: %s
Instruction: %s

%s`, field, description, fmt.Sprintf(jsonContract, field))
}

// VideoExtractionPrompt builds the extraction instruction for a video
// asset. Retrieved frames and transcript passages follow the prompt.
func VideoExtractionPrompt(field, description string) string {
	return fmt.Sprintf(`You are a video analysis expert. You are given frames sampled from a video and passages from its transcript, selected for relevance to the question. Extract the following:

Field: %s
Instruction: %s

%s`, field, description, fmt.Sprintf(jsonContract, field))
}

// AudioExtractionPrompt builds the extraction instruction for an audio
// asset. Relevant transcript passages are embedded in the prompt.
func AudioExtractionPrompt(field, description, transcript string) string {
	return fmt.Sprintf(`You are an audio analysis expert. The following passages were transcribed from an audio recording and selected for relevance to the question:

%s

Extract the following:

Field: %s
Instruction: %s

%s`, transcript, field, description, fmt.Sprintf(jsonContract, field))
}
