package detection

// BotTokens are user agent fragments of crawlers, scrapers and automation frameworks.
var BotTokens = []string{
	"bot", "crawler", "spider", "scraper",
	"curl", "wget", "python-requests", "python-urllib", "go-http-client", "java/",
	"libwww", "httpclient", "okhttp",
	"headless", "phantomjs", "selenium", "puppeteer", "playwright", "scrapy",
}

// CLITokens are user agent fragments of command line clients and scanners.
var CLITokens = []string{
	"curl", "wget", "httpie", "python", "go-http-client",
	"nikto", "sqlmap", "nmap", "masscan", "zgrab",
}

// SensitivePaths are path fragments commonly requested by scanners.
var SensitivePaths = []string{
	"/wp-admin", "/wp-login", "/phpmyadmin", "/admin",
	"/.env", "/.git", "/config", "/server-status", "/.aws",
	"/actuator", "/etc/passwd", "/xmlrpc.php", "/cgi-bin",
}

// MinUserAgentLength is the shortest user agent not considered suspicious on length alone.
const MinUserAgentLength = 10
