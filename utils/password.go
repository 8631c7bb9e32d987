package utils

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// LoadBlackList reads one common password per line. An empty path yields an
// empty list.
func LoadBlackList(filePath string) (map[string]bool, error) {
	blackList := make(map[string]bool)
	if filePath == "" {
		return blackList, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			blackList[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blackList, nil
}
