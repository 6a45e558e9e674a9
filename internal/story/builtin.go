package story

// Builtin returns the Captain Asher moon-jungle pack. The sequence is:
// adventure intro, blending, read-aloud comprehension, adventure bridge,
// one phonics and three spelling questions (hook-bearing), adventure closer.
func Builtin() *Pack {
	return &Pack{
		Name: "Captain Asher's Moon Jungle",
		Characters: Characters{
			Hero:      "Asher",
			Sidekicks: []string{"Clay", "Shracker"},
		},
		Steps: []Step{
			AdventureStep{Role: KindAdventureIntro},
			BlendingStep{
				Word:        "Asher",
				Image:       "🧑‍🚀",
				Phonemes:    []string{"a", "sh", "er"},
				Explanation: "Blend the sounds a-sh-er to make 'Asher'!",
			},
			ComprehensionStep{
				Text: "Map, please! Captain Asher and Clay were in the moon jungle. " +
					"Shracker zipped overhead. The boss ran at Asher. Asher slid aside—WHOOSH! " +
					"The boss fell into a spinning hole. A bright gate glowed. " +
					"‘Map, please,’ said Asher. The gate gave him a map.",
				Image:         "🗺️🚪✨🌙🌴",
				ExpectedWords: []string{"map", "gate"},
				Explanation:   "Great reading! You said the important words from the story.",
			},
			AdventureStep{Role: KindAdventureBridge},
			PhonicsStep{
				Word:         "ship",
				Image:        "🚀",
				Options:      []string{"th", "ch", "sh"},
				CorrectIndex: 2,
				Explanation:  `Captain Asher flies his amazing space "ship" - it starts with "sh"!`,
				Hook: &Hook{
					TargetWord:     "ship",
					Intent:         IntentSound,
					BaseLine:       "Across the water, something big glides toward Captain Asher.",
					QuestionLine:   "What sound does it start with?",
					ValidationWord: "ship",
				},
			},
			SpellingStep{
				Word:        "chop",
				Image:       "🪓",
				Answer:      "chop",
				Explanation: `Clay uses his laser axe to "chop" jungle vines!`,
				Hook: &Hook{
					TargetWord:     "chop",
					Intent:         IntentSpelling,
					BaseLine:       "From the vines, you hear a steady cutting sound ahead.",
					QuestionLine:   "What is that word?",
					ValidationWord: "chop",
				},
			},
			SpellingStep{
				Word:        "clay",
				Image:       "🐉",
				Answer:      "clay",
				Explanation: "Type the sidekick's name: Clay!",
				Hook: &Hook{
					TargetWord:     "clay",
					Intent:         IntentSpelling,
					BaseLine:       "Clay lands beside Asher in the moon jungle.",
					QuestionLine:   "What is that word?",
					ValidationWord: "clay",
				},
			},
			SpellingStep{
				Word:        "shracker",
				Image:       "🤖🐦",
				Answer:      "shracker",
				Explanation: "Type the robo-bird's name: Shracker!",
				Hook: &Hook{
					TargetWord:     "shracker",
					Intent:         IntentSpelling,
					BaseLine:       "Suddenly, a metallic bird with glowing eyes circles overhead.",
					QuestionLine:   "What is that word?",
					ValidationWord: "shracker",
				},
			},
			AdventureStep{Role: KindAdventureCloser},
		},
	}
}
