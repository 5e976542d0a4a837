package logx

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Русский комментарий: Этот пакет инкапсулирует настройку структурированного логирования.
// Вся операционная информация выводится только на английском, комментарии в коде — на русском.
// zap даёт производительность и единый формат, lumberjack — ротацию файлов логов.

// LogRotationConfig содержит параметры ротации логов.
type LogRotationConfig struct {
	Filename   string // путь к файлу лога
	MaxSizeMB  int    // максимальный размер файла лога в MB
	MaxBackups int    // количество старых файлов для хранения
	MaxAgeDays int    // максимальный возраст файла лога в днях
}

// NewLogger создаёт новый логгер с заданным уровнем и режимом.
// Русский комментарий: Без глобального состояния — каждый бинарь (bot, sender)
// создаёт свой логгер в main и передаёт его дальше через конструкторы.
func NewLogger(level string, pretty bool, rotationCfg LogRotationConfig) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel // fallback to info
	}

	var encoderCfg zapcore.EncoderConfig
	if pretty {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
	}
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if pretty {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	filename := rotationCfg.Filename
	if filename == "" {
		filename = "logs/keywarden.log"
	}

	// Настраиваем ротацию логов через lumberjack
	logFile := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    rotationCfg.MaxSizeMB,
		MaxBackups: rotationCfg.MaxBackups,
		MaxAge:     rotationCfg.MaxAgeDays,
		Compress:   true, // сжимаем старые файлы
	}

	// Multi-writer: stdout + файл с ротацией
	fileWriter := zapcore.AddSync(logFile)
	consoleWriter := zapcore.AddSync(os.Stdout)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, consoleWriter, zapLevel),
		zapcore.NewCore(encoder, fileWriter, zapLevel),
	)

	return zap.New(core, zap.AddCaller()), nil
}
