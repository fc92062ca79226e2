package config

// WorkspaceConfig configures project scanning and search.
type WorkspaceConfig struct {
	// Parallel workers for content search
	SearchWorkers int `yaml:"search_workers"`

	// Cap on returned search matches
	MaxSearchHits int `yaml:"max_search_hits"`

	// Files larger than this are skipped during content search
	MaxFileSizeKB int `yaml:"max_file_size_kb"`

	// Honor .gitignore rules when listing project files
	UseGitignore bool `yaml:"use_gitignore"`

	// Additional ignore file read from the workspace root
	IgnoreFileName string `yaml:"ignore_file_name"`
}
