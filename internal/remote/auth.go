package remote

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// challengeSeparator joins the key and the challenge before hashing.
const challengeSeparator = " <==> "

// HashKey returns the hex MD5 of key, sent with every command.
func HashKey(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// AnswerChallenge computes the answer to a server challenge.
func AnswerChallenge(key, challenge string) string {
	sum := blake2b.Sum256([]byte(key + challengeSeparator + challenge))
	return hex.EncodeToString(sum[:])
}

func newChallenge() string {
	return uuid.NewString()
}

// authenticator checks commands against one key. The key hash is computed
// once.
type authenticator struct {
	key     string
	keyHash string
}

func newAuthenticator(key string) *authenticator {
	return &authenticator{key: key, keyHash: HashKey(key)}
}

// verify reports whether frame carries both the right key hash and the
// right answer to challenge.
func (a *authenticator) verify(frame *Frame, challenge string) bool {
	hashOK := subtle.ConstantTimeCompare([]byte(frame.Hash), []byte(a.keyHash)) == 1
	answer := AnswerChallenge(a.key, challenge)
	answerOK := subtle.ConstantTimeCompare([]byte(frame.Challenge), []byte(answer)) == 1
	return hashOK && answerOK
}
