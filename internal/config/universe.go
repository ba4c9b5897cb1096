package config

// DefaultStockUniverse is the equity ticker set used when none is configured.
var DefaultStockUniverse = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "META",
	"TSLA", "NVDA", "INTC", "CSCO", "NFLX",
}

// DefaultCommodityUniverse covers every supported futures ticker.
var DefaultCommodityUniverse = []string{
	"CL=F", "BZ=F", "NG=F", "HO=F",
	"ZS=F", "ZW=F", "ZC=F", "CC=F",
}
