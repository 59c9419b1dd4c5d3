package prompts

import "fmt"

// ============================================================================
// Summary Prompts
// ============================================================================

// SummarySystemPrompt defines the role for article summarization.
const SummarySystemPrompt = `You are an expert content creator specializing in news summarization.`

// SummaryUserPrompt builds the per-article summary request.
func SummaryUserPrompt(title, description string) string {
	return fmt.Sprintf(`Create a concise, engaging summary of this news article in 2-3 sentences.
Make it informative and easy to understand.

Title: %s
Description: %s

Provide only the summary text, no additional formatting or labels.`, title, description)
}

// ============================================================================
// Social Post Prompts
// ============================================================================

// SocialSystemPrompt defines the role for social post generation.
const SocialSystemPrompt = `You are a social media expert creating engaging posts.`

// SocialUserPrompt builds the per-article social post request. The character
// budget leaves room for the article link appended by the publishing step.
func SocialUserPrompt(title, description string) string {
	return fmt.Sprintf(`Create an engaging social media post for this news article. Follow these rules:
1. Must be under 240 characters (leaving room for the article link)
2. Include 2-3 relevant hashtags
3. Be engaging and informative
4. Use a professional but accessible tone
5. Provide ONLY the post text, no extra formatting or labels

Title: %s
Description: %s`, title, description)
}
