package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Каталог секретов можно переопределить для локальной разработки
// переменной SECRETS_DIR; по умолчанию это стандартный путь Docker Secrets.
const defaultSecretsDir = "/run/secrets"

// ReadSecret читает обязательный секрет из файла. Fallback на переменные
// окружения намеренно отсутствует: секреты живут только в файлах.
func ReadSecret(name string) (string, error) {
	dir := os.Getenv("SECRETS_DIR")
	if dir == "" {
		dir = defaultSecretsDir
	}
	path := filepath.Join(dir, name)

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать секрет %s: %w", path, err)
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", fmt.Errorf("файл секрета %s пуст", path)
	}
	return value, nil
}
