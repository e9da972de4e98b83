package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Index.Root == "" {
		cfg.Index.Root = "."
	}
	if cfg.Index.Extensions == nil {
		cfg.Index.Extensions = []string{
			".go", ".py", ".js", ".ts", ".java", ".c", ".h", ".cpp", ".rs",
			".txt", ".md", ".rst", ".yaml", ".yml", ".json", ".toml",
			".pdf", ".docx", ".xlsx",
		}
	}
	if cfg.Index.Excludes == nil {
		cfg.Index.Excludes = []string{"node_modules", "vendor", "dist", "build", "target"}
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = 800
	}
	if cfg.Index.ChunkOverlap == 0 {
		cfg.Index.ChunkOverlap = 120
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = "all-MiniLM-L6-v2"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 400
	}
}
