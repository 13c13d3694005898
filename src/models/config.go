package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	GrpcPort int             `yaml:"grpc_port"`
	Pairs    []string        `yaml:"pairs"`
	Paths    MPathsConfig    `yaml:"paths"`
	Ticks    MTicksConfig    `yaml:"ticks"`
	Bars     MBarsConfig     `yaml:"bars"`
	Features MFeaturesConfig `yaml:"features"`
	Decision MDecisionConfig `yaml:"decision"`
	Training MTrainingConfig `yaml:"training"`
	Storage  MStorageConfig  `yaml:"storage"`
	Cache    MCacheConfig    `yaml:"cache"`
	Network  MNetworkConfig  `yaml:"network"`
	ONNX     MONNXConfig     `yaml:"onnx"`
}

type MPathsConfig struct {
	DataRoot string `yaml:"data_root"`
	ModelDir string `yaml:"model_dir"`
}

type MTicksConfig struct {
	// PriceScale maps a pair to its integer price divisor. Pairs not listed
	// fall back to 1000 for JPY quotes and 100000 otherwise.
	PriceScale map[string]int64 `yaml:"price_scale"`
}

type MBarsConfig struct {
	Timeframes []string `yaml:"timeframes"`
}

type MFeaturesConfig struct {
	Timeframe    string   `yaml:"timeframe"`
	EventWindows []string `yaml:"event_windows"`
	Sessions     bool     `yaml:"sessions"`
}

type MDecisionConfig struct {
	RSIOversold      float64 `yaml:"rsi_oversold"`
	RSIOverbought    float64 `yaml:"rsi_overbought"`
	MABand           float64 `yaml:"ma_band"`
	MacroSentiment   float64 `yaml:"macro_sentiment"`
	ScoreThreshold   float64 `yaml:"score_threshold"`
	VolQuantile      float64 `yaml:"vol_quantile"`
	SpreadMultiplier float64 `yaml:"spread_multiplier"`
	MacroCountMedium float64 `yaml:"macro_count_medium"`
	MinHistory       int     `yaml:"min_history"`
}

type MTrainingConfig struct {
	ForwardBars    int     `yaml:"forward_bars"`
	BuyThreshold   float64 `yaml:"buy_threshold"`
	SellThreshold  float64 `yaml:"sell_threshold"`
	Splits         int     `yaml:"splits"`
	MinRows        int     `yaml:"min_rows"`
	Epochs         int     `yaml:"epochs"`
	LearningRate   float64 `yaml:"learning_rate"`
	L2             float64 `yaml:"l2"`
	RetrainMinDays int     `yaml:"retrain_min_days"`
	MaxAgeDays     int     `yaml:"max_age_days"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MCacheConfig struct {
	RedisAddr   string `yaml:"redis_addr"`
	TTLSeconds  int    `yaml:"ttl_seconds"`
	HistorySize int    `yaml:"history_size"`
}

type MNetworkConfig struct {
	BaseURL        string `yaml:"base_url"`
	Proxy          string `yaml:"proxy"`
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MONNXConfig struct {
	SharedLibraryPath string `yaml:"shared_library_path"`
}
