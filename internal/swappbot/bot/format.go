package bot

import (
	"fmt"
	"strings"

	"github.com/huzaifa838/swappbot/internal/swappbot/bank"
	"github.com/huzaifa838/swappbot/internal/swappbot/weather"
)

// Rendering is pure and total: every entry kind and every template below
// produces a string, never an error.

const greetingReply = `🟢 Hello! 👋 I'm SwappBot. Ask me any coding doubt - HTML, CSS, JS, React, Node, Git etc.

💬 You can ask me coding doubts like:
• "what is array"
• "how to use map in js"
• "difference between let and var"`

const cityPromptReply = `📍 Please enter your *city name* (Example: Delhi, Mumbai)`

const invalidCityReply = `❌ City name invalid. Please type a valid city name.`

const fallbackReply = `I don't have an exact answer for that yet, but I can still help. 😊

Try this:
1. Describe your coding question clearly
2. Share the language (JS / React / Node / HTML / CSS etc.)
3. If it's an error, copy the full error message

Example:
"React: Cannot read properties of undefined reading 'map' - here is my component code: ..."

I'll then respond with:
- Problem explanation
- Why it happens
- How to fix it step-by-step`

const defaultTip = "Practice by writing small programs"

// renderEntry dispatches on the entry kind.
func renderEntry(e *bank.Entry) string {
	switch e.Kind {
	case bank.KindGreeting:
		return greetingReply
	case bank.KindCoding:
		return renderCoding(e.Title, e.Explanation, e.Example, e.Tips)
	case bank.KindSteps:
		return renderSteps(e.Title, e.Steps)
	case bank.KindRaw:
		return e.Text
	default:
		// Unreachable for a validated catalog.
		return fallbackReply
	}
}

// renderCoding renders a title line, explanation paragraph, fenced example,
// and an enumerated tips list (one default tip when the list is empty).
func renderCoding(title, explanation, example string, tips []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 %s\n\n", title)
	fmt.Fprintf(&b, "📘 Explanation:\n%s\n\n", explanation)
	fmt.Fprintf(&b, "💻 Example:\n```js\n%s\n```\n\n", example)
	b.WriteString("💡 Tips:\n")
	if len(tips) == 0 {
		tips = []string{defaultTip}
	}
	for i, tip := range tips {
		fmt.Fprintf(&b, "%d. %s\n", i+1, tip)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderSteps renders a title line and a 1-based enumerated step list.
func renderSteps(title string, steps []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 %s\n\n", title)
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderWeather renders a successful lookup into the weather summary.
func renderWeather(city string, r *weather.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌤️ *Weather in %s*\n", city)
	fmt.Fprintf(&b, "Temperature: %.1f°C\n", r.Temperature)
	fmt.Fprintf(&b, "Feels Like: %.1f°C\n", r.FeelsLike)
	fmt.Fprintf(&b, "Humidity: %d%%\n", r.Humidity)
	fmt.Fprintf(&b, "Wind: %.1f m/s\n", r.WindSpeed)
	fmt.Fprintf(&b, "Condition: %s", r.Description)
	return b.String()
}

// renderWeatherError embeds the provider's message so users can see what the
// upstream service said (wrong city, service down). The caller is expected
// to have redacted credentials from msg.
func renderWeatherError(msg string) string {
	return "❌ Weather service error: " + msg
}

// renderErrorHelp is the fixed debugging template for error/bug complaints.
func renderErrorHelp() string {
	var b strings.Builder
	b.WriteString("❌ ERROR HELP\n\n")
	b.WriteString("🟥 Problem:\nYou said something is giving an error / not working.\n\n")
	b.WriteString("🟨 Possible Cause:\nCommon causes: syntax mistakes, wrong imports, wrong path, missing await, CORS, wrong port.\n\n")
	b.WriteString("🟩 Fix:\nPaste your exact error message and relevant code (function, route, or component). I will debug step by step.")
	return b.String()
}

// renderLoopAnswer is the fixed loop explanation used by the topic rule.
func renderLoopAnswer() string {
	return renderCoding(
		"Loops in JavaScript",
		"Loops are used to repeat a block of code multiple times.",
		"for (let i = 0; i < 5; i++) {\n  console.log(i);\n}",
		[]string{
			"Use for, while, for..of for most cases",
			"Be careful to avoid infinite loops",
		},
	)
}

// renderRoadmap is the fixed roadmap used by the topic rule.
func renderRoadmap() string {
	return renderSteps("General Developer Roadmap", []string{
		"Choose main language (JavaScript for web)",
		"Learn basics: syntax, variables, loops, functions",
		"Learn web: HTML + CSS + JS",
		"Learn frontend framework (React)",
		"Learn backend (Node + Express) and database",
		"Build multiple projects and push to GitHub",
		"Learn deployment (Vercel, Render, etc.)",
	})
}

// renderArrayFallback answers the array topic rule when the catalog has no
// array entry.
func renderArrayFallback() string {
	return "🤖 Arrays store multiple values in one variable."
}
