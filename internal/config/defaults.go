package config

const (
	defaultDataDir     = "~/.local/share/newswire"
	defaultLogDir      = "~/.local/share/newswire/logs"
	defaultMediaDir    = "~/.local/share/newswire/media"
	defaultSourcesFile = "~/.config/newswire/sources.yaml"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"

	defaultWorkers               = 4
	defaultLimit                 = 20
	defaultSignificanceThreshold = 6.0

	defaultProviderTimeoutSeconds = 120
	defaultProviderMaxAttempts    = 3
	defaultProviderBackoffSeconds = 2.0

	defaultMinSourceChars      = 400
	defaultMinOverlapCount     = 8
	defaultMinOverlapRatio     = 0.15
	defaultDuplicateSimilarity = 0.90

	defaultWordPressTimeoutSeconds  = 30
	defaultWordPressThrottleSeconds = 1.0
	defaultWordPressUsernameEnv     = "WORDPRESS_USERNAME"
	defaultWordPressPasswordEnv     = "WORDPRESS_APP_PASSWORD"

	defaultCurationWindowHours       = 48
	defaultCurationBreakingThreshold = 8.5
	defaultCurationFeaturedThreshold = 7.0
	defaultCurationBreakingLimit     = 3
	defaultCurationFeaturedLimit     = 6

	defaultAudioLanguage       = "pt"
	defaultAudioTimeoutSeconds = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			MediaDir:    defaultMediaDir,
			SourcesFile: defaultSourcesFile,
		},
		Pipeline: Pipeline{
			Workers:               defaultWorkers,
			Limit:                 defaultLimit,
			SignificanceThreshold: defaultSignificanceThreshold,
		},
		Scoring: Scoring{
			RelevanceWeight:   0.40,
			ScaleWeight:       0.25,
			ImpactWeight:      0.20,
			NoveltyWeight:     0.10,
			CredibilityWeight: 0.05,
			FinalPower:        1.3,

			EditorialImpactWeight:      0.30,
			EditorialNoveltyWeight:     0.25,
			EditorialCredibilityWeight: 0.20,
			EditorialPotentialWeight:   0.15,
			EditorialPositivityWeight:  0.10,
			EditorialPower:             1.2,
		},
		Generation: Generation{
			MinSourceChars:      defaultMinSourceChars,
			MinOverlapCount:     defaultMinOverlapCount,
			MinOverlapRatio:     defaultMinOverlapRatio,
			DuplicateSimilarity: defaultDuplicateSimilarity,
		},
		WordPress: WordPress{
			UsernameEnv:     defaultWordPressUsernameEnv,
			PasswordEnv:     defaultWordPressPasswordEnv,
			ThrottleSeconds: defaultWordPressThrottleSeconds,
			TimeoutSeconds:  defaultWordPressTimeoutSeconds,
		},
		Curation: Curation{
			WindowHours:       defaultCurationWindowHours,
			BreakingThreshold: defaultCurationBreakingThreshold,
			FeaturedThreshold: defaultCurationFeaturedThreshold,
			BreakingLimit:     defaultCurationBreakingLimit,
			FeaturedLimit:     defaultCurationFeaturedLimit,
			SyncCategories:    true,
		},
		Audio: Audio{
			Language:       defaultAudioLanguage,
			TimeoutSeconds: defaultAudioTimeoutSeconds,
			Highlights:     []string{"BREAKING", "FEATURED"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
