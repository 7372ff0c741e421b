package config

// DefaultExtensions are the file types loaded when the config does not name any.
var DefaultExtensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Corpus.MaxParallelReads <= 0 {
		cfg.Corpus.MaxParallelReads = 8
	}
	if cfg.Ranking.FileMatches == 0 {
		cfg.Ranking.FileMatches = 1
	}
	if cfg.Ranking.SentenceMatches == 0 {
		cfg.Ranking.SentenceMatches = 1
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestsPerSecond == 0 {
		cfg.Server.RequestsPerSecond = 20
	}
	if cfg.Server.Burst == 0 {
		cfg.Server.Burst = 40
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 400
	}
}
