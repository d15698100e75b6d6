package mlog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

// writer 定义了条目写入器接口。
type writer interface {
	// WriteEntry 利用写入器将日志条目写入到指定位置。
	WriteEntry(e *entry) error
	// Close 关闭写入日志的记录器。
	Close() error
}

/* ------------------------------------------------------------------------------------------ */

type terminalWriter struct {
	mutex sync.Mutex
}

func NewTerminalWriter() writer {
	return &terminalWriter{}
}

func (tw *terminalWriter) WriteEntry(e *entry) error {
	tw.mutex.Lock()
	defer tw.mutex.Unlock()
	_, err := os.Stderr.Write([]byte(e.ColorLevelString()))
	return err
}

func (*terminalWriter) Close() error {
	return nil
}

/* ------------------------------------------------------------------------------------------ */

const defaultSingleFileMaxSize = 16 * 1024 * 1024

var allLevels = []Level{DebugLevel, InfoLevel, WarnLevel, ErrorLevel, PanicLevel}

type multiFileWriter struct {
	// maxSize 定义一个日志文件所能存储的字节数。
	maxSize uint32
	// writers 多种级别日志记录器。
	writers map[string]*fileWriter
}

// NewMultiFileWriter 在 dirPath 下为每个日志等级建立一个子目录，日志文件写满 maxSize 字节后滚动到新文件。
func NewMultiFileWriter(dirPath string, maxSize int) (writer, error) {
	if dirPath == "" {
		return nil, errors.NewError("invalid path, nil directory path")
	}
	if maxSize <= 0 {
		maxSize = defaultSingleFileMaxSize
	}

	mfw := &multiFileWriter{
		maxSize: uint32(maxSize),
		writers: make(map[string]*fileWriter),
	}

	for _, lvl := range allLevels {
		if err := os.MkdirAll(filepath.Join(dirPath, lvl.String()), os.FileMode(0775)); err != nil {
			return nil, errors.NewErrorf("failed creating %s log directory, the error is \"%s\"", lvl.String(), err.Error())
		}
		wr, err := newFileWriter(dirPath, lvl)
		if err != nil {
			return nil, err
		}
		mfw.writers[lvl.String()] = wr
	}

	return mfw, nil
}

func (mfw *multiFileWriter) WriteEntry(e *entry) (err error) {
	wr, ok := mfw.writers[e.level.String()]
	if !ok || wr == nil {
		return nil
	}
	return wr.write(mfw.maxSize, e)
}

func (mfw *multiFileWriter) Close() error {
	var firstErr error
	for name, wr := range mfw.writers {
		if err := wr.close(); err != nil && firstErr == nil {
			firstErr = errors.NewErrorf("failed closing %s log file, the error is \"%s\"", name, err.Error())
		}
	}
	return firstErr
}

/* ------------------------------------------------------------------------------------------ */

type fileWriter struct {
	dirPath        string
	alreadyWritten uint32
	num            uint32
	wr             *os.File
	mutex          sync.Mutex
}

func newFileWriter(dirPath string, lvl Level) (*fileWriter, error) {
	files, err := os.ReadDir(filepath.Join(dirPath, lvl.String()))
	if err != nil {
		return nil, errors.NewErrorf("failed reading %s log directory \"%s\", the error is \"%s\"", lvl.String(), filepath.Join(dirPath, lvl.String()), err.Error())
	}
	var recordedLogFilesNum, latestAlreadyWritten int
	reg := regexp.MustCompile(fmt.Sprintf(`^%s-\d+\.log$`, lvl.String()))
	for _, file := range files {
		if reg.MatchString(file.Name()) {
			recordedLogFilesNum++
		}
	}
	if recordedLogFilesNum > 0 {
		filePath := filepath.Join(dirPath, lvl.String(), fmt.Sprintf("%s-%d.log", lvl.String(), recordedLogFilesNum))
		stat, err := os.Stat(filePath)
		if err != nil {
			return nil, errors.NewErrorf("cannot fetch the latest information of the %s log file \"%s\", the error is \"%s\"", lvl.String(), filePath, err.Error())
		}
		latestAlreadyWritten = int(stat.Size())
	} else {
		recordedLogFilesNum = 1
	}

	return &fileWriter{
		num:            uint32(recordedLogFilesNum),
		alreadyWritten: uint32(latestAlreadyWritten),
		dirPath:        dirPath,
	}, nil
}

func (fw *fileWriter) path(lvl Level) string {
	return filepath.Join(fw.dirPath, lvl.String(), fmt.Sprintf("%s-%d.log", lvl.String(), fw.num))
}

func (fw *fileWriter) write(max uint32, e *entry) (err error) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()

	if fw.wr == nil {
		fw.wr, err = os.OpenFile(fw.path(e.level), os.O_CREATE|os.O_APPEND|os.O_RDWR, os.FileMode(0600))
		if err != nil {
			return errors.NewErrorf("failed opening the %s log file, the error is \"%s\"", e.level.String(), err.Error())
		}
	}

	n, err := fw.wr.Write([]byte(e.NormalLevelString()))
	if err != nil {
		return errors.NewErrorf("failed writing log entry to the %s file, the error is \"%s\"", e.level.String(), err.Error())
	}
	fw.alreadyWritten += uint32(n)

	if fw.alreadyWritten >= max {
		fw.wr.Close()
		fw.alreadyWritten = 0
		fw.num++
		fw.wr, err = os.OpenFile(fw.path(e.level), os.O_CREATE|os.O_APPEND|os.O_RDWR, os.FileMode(0600))
		if err != nil {
			return errors.NewErrorf("failed creating the new %s log file, the error is \"%s\"", e.level.String(), err.Error())
		}
	}
	return nil
}

func (fw *fileWriter) close() error {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	if fw.wr == nil {
		return nil
	}
	err := fw.wr.Close()
	fw.wr = nil
	return err
}

/* ------------------------------------------------------------------------------------------ */

type mockWriter struct{}

func (mock *mockWriter) WriteEntry(*entry) error {
	return nil
}

func (mock *mockWriter) Close() error {
	return nil
}
