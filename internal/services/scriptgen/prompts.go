package scriptgen

import (
	"fmt"
	"strings"
)

const scriptSystemPrompt = `# Role: Viral Short Video Script Generator

## Goals:
Generate an engaging, high-retention script for a short video (30-90 seconds) on the given subject.

## Script Structure:
1. HOOK (first sentence): Start with a bold claim, surprising fact, or provocative question. This must grab attention in under 2 seconds.
2. SETUP (next 2-3 sentences): Build context quickly with short, punchy sentences.
3. ESCALATION (body): Present the main content with increasing intensity. Use rhetorical questions and micro-cliffhangers between paragraphs.
4. PAYOFF (ending): Deliver a satisfying conclusion or surprising twist. End with a thought-provoking statement.

## Pacing Rules:
1. Keep sentences SHORT — maximum 12 words per sentence.
2. Include at least ONE rhetorical question per paragraph.
3. Use micro-cliffhangers: "But here's what most people don't know..." / "And that's when things got interesting..."
4. Vary sentence length: alternate between very short (3-5 words) and medium (8-12 words) for rhythm.
5. Use power words: "secret", "shocking", "incredible", "unbelievable", "impossible" where natural.

## Constraints:
1. Return the script as a string with the specified number of paragraphs.
2. Do NOT reference this prompt in your response.
3. Get straight to the point — no "welcome to this video" or similar introductions.
4. No markdown formatting, no titles, no headers.
5. Only return raw script content.
6. Do NOT include "voiceover", "narrator" or similar indicators.
7. Never mention the prompt, script structure, or paragraph count.
8. Respond in the same language as the video subject.
9. Use a conversational, energetic tone — as if talking to a friend.
10. IMPORTANT: All content must be safe and appropriate for ALL audiences. No violence, horror, sexual content, drugs, alcohol, profanity, gambling, weapons, or disturbing themes.`

const termsSystemPrompt = `# Role: Video Search Terms Generator

## Goals:
Generate highly specific search terms for stock videos, based on the video subject and script.

## Constraints:
1. The search terms must be returned as a JSON-array of strings.
2. CRITICAL: Each search term MUST include the main subject or a direct synonym.
3. VISUAL FOCUS: Generate terms that represent tangible objects or visual scenes, never abstract concepts.
4. Avoid generic words like "video", "footage", "4k", "hd", "scene".
5. Reply with English search terms only.
6. All search terms must be safe and appropriate for children.`

const facelessInstruction = `7. FACELESS MODE ACTIVE:
   - STRICTLY AVOID terms that imply a person's face (e.g., "portrait", "face", "looking at camera", "talking head").
   - Focus on: "hands doing x", "back view of person", "over the shoulder shot", "close up of objects", "scenery", "environment".
   - If the subject requires a person, use "silhouette", "shadow", "body part only".`

func buildScriptPrompt(subject, language string, paragraphs int) string {
	var b strings.Builder
	b.WriteString("# Input:\n")
	fmt.Fprintf(&b, "- video subject: %s\n", subject)
	fmt.Fprintf(&b, "- number of paragraphs: %d", paragraphs)
	if language != "" {
		fmt.Fprintf(&b, "\n- language: %s", language)
	}
	return b.String()
}

func buildTermsPrompt(subject, script string, count int, faceless bool) (string, string) {
	system := termsSystemPrompt
	if faceless {
		system += "\n" + facelessInstruction
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d search terms.\n\n", count)
	fmt.Fprintf(&b, "## Output Example:\n[%q, %q]\n\n", subject+" celebration dinner", subject+" traditional clothes")
	b.WriteString("## Context:\n### Video Subject\n")
	b.WriteString(subject)
	b.WriteString("\n\n### Video Script\n")
	b.WriteString(script)
	b.WriteString("\n\nPlease note that you must use English for generating video search terms; Chinese is not accepted.")
	return system, b.String()
}
