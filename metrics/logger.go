package metrics

import (
	"fmt"
	"log"
	"os"
	"path"
)

type Logger interface {
	Log(info *MetricsInfo)
}

type StdoutLogger struct{}

func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{}
}

func (l *StdoutLogger) Log(info *MetricsInfo) {
	infoStr, err := info.ToJSON()
	if err == nil {
		log.Print(infoStr)
	} else {
		log.Printf("StdoutLogger: error: %v", err)
	}
}

const defaultQueueSize = 2000
const defaultMaxLogFileSize = 1024 * 1024 * 1024
const defaultMaxLogFiles = 10

// FileLogger writes metrics records as JSON lines into a log file,
// rotating into at most MaxLogFiles numbered files once the current one
// exceeds MaxLogFileSize. Writes are queued so request handlers never
// block on disk.
type FileLogger struct {
	MetricsQueue   chan *MetricsInfo
	LogDir         string
	MaxLogFileSize int64
	MaxLogFiles    int
	Verbose        bool
}

func NewFileLogger(logDir string, maxLogFileSize int64, maxLogFiles int, verbose bool) *FileLogger {
	if maxLogFileSize <= 0 {
		maxLogFileSize = defaultMaxLogFileSize
	}
	if maxLogFiles <= 0 {
		maxLogFiles = defaultMaxLogFiles
	}
	logger := &FileLogger{
		MetricsQueue:   make(chan *MetricsInfo, defaultQueueSize),
		LogDir:         logDir,
		MaxLogFileSize: maxLogFileSize,
		MaxLogFiles:    maxLogFiles,
		Verbose:        verbose,
	}

	go logger.startLogWriter()

	return logger
}

func (l *FileLogger) Log(info *MetricsInfo) {
	select {
	case l.MetricsQueue <- info:
	default:
		log.Printf("FileLogger: metrics queue full, dropping record")
	}
}

func (l *FileLogger) startLogWriter() {
	f, err := l.openLogFile()
	if err != nil {
		log.Printf("FileLogger: log open error: %v", err)
		return
	}

	rotation := 0
	for info := range l.MetricsQueue {
		infoStr, err := info.ToJSON()
		if err != nil {
			log.Printf("FileLogger: info.ToJSON() error: %v", err)
			continue
		}

		f, rotation, err = l.tryRotateLogFile(f, rotation)
		if err != nil {
			continue
		}

		if _, err := f.WriteString(infoStr); err != nil {
			log.Printf("FileLogger: write error: %v", err)
			continue
		}
		f.Sync()
	}
}

func (l *FileLogger) openLogFile() (*os.File, error) {
	logFilePath := path.Join(l.LogDir, "metrics.log")
	return os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (l *FileLogger) tryRotateLogFile(currFile *os.File, rotation int) (*os.File, int, error) {
	info, err := currFile.Stat()
	if err != nil {
		log.Printf("FileLogger: log rotation error: %v", err)
		return currFile, rotation, nil
	}

	if info.Size() < l.MaxLogFileSize {
		return currFile, rotation, nil
	}

	// Oldest rotated file gets overwritten once the slots wrap around.
	rotatedLogFilePath := path.Join(l.LogDir, fmt.Sprintf("metrics.log.%d", rotation%l.MaxLogFiles))
	currFile.Close()
	if err := os.Rename(path.Join(l.LogDir, "metrics.log"), rotatedLogFilePath); err != nil {
		log.Printf("FileLogger: log rotation error: %v", err)
	} else if l.Verbose {
		log.Printf("FileLogger: log file rotated: %v", rotatedLogFilePath)
	}

	f, err := l.openLogFile()
	if err != nil {
		log.Printf("FileLogger: log rotation error: %v", err)
	}
	return f, rotation + 1, err
}
