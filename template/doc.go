// Package template resolves {{placeholder}} tokens in prompt text.
//
// Resolution runs in a fixed order, since later passes may consume the
// output of earlier ones:
//
//  1. time facts: {{Date}}, {{Time}}, {{Date::time}}, {{Today}}, {{Festival}}
//  2. fixed dynamic facts: {{WeatherInfo}}, {{SystemInfo}}
//  3. reserved-prefix user facts: {{Var...}}
//  4. the expandable {{EmojiPrompt}} fact, with its inner {{通用表情包}}
//     resolved first
//  5. asset lists: {{<agent>表情包}}
//  6. diaries: {{<character>日记本}}, one directory scan per character
//  7. literal rule set A, then rule set B
//
// Unknown placeholders are left verbatim. Apart from diary reads, Resolve is
// a pure function of the text, the clock and a store snapshot.
package template
