// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package aucpace_test

import (
	"crypto"
	_ "crypto/sha512"
	"errors"
	"fmt"
	"testing"

	"github.com/bytemare/ecc"
	"github.com/stretchr/testify/require"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/aucpace"
)

type memDatabase struct {
	records       map[string]*aucpace.Record
	strongRecords map[string]*aucpace.StrongRecord
}

func newMemDatabase() *memDatabase {
	return &memDatabase{
		records:       make(map[string]*aucpace.Record),
		strongRecords: make(map[string]*aucpace.StrongRecord),
	}
}

func (d *memDatabase) StoreRecord(record *aucpace.Record) error {
	d.records[string(record.Username)] = record
	return nil
}

func (d *memDatabase) LookupRecord(username []byte) (*aucpace.Record, error) {
	record, ok := d.records[string(username)]
	if !ok {
		return nil, pake.ErrLookup.Join(fmt.Errorf("no record for %q", username))
	}

	return record, nil
}

func (d *memDatabase) StoreStrongRecord(record *aucpace.StrongRecord) error {
	d.strongRecords[string(record.Username)] = record
	return nil
}

func (d *memDatabase) LookupStrongRecord(username []byte) (*aucpace.StrongRecord, error) {
	record, ok := d.strongRecords[string(username)]
	if !ok {
		return nil, pake.ErrLookup.Join(fmt.Errorf("no strong record for %q", username))
	}

	return record, nil
}

type failingSource struct{}

func (failingSource) Read([]byte) error {
	return errors.New("entropy exhausted")
}

var testFallbackKey = []byte("0123456789abcdef0123456789abcdef")

func testConfiguration(variant aucpace.Variant) *aucpace.Configuration {
	return &aucpace.Configuration{
		ChannelIdentifier: []byte("client|server"),
		Group:             ecc.Ristretto255Sha512,
		Hash:              crypto.SHA512,
		Variant:           variant,
	}
}

func newServer(t *testing.T, conf *aucpace.Configuration, db *memDatabase) *aucpace.Server {
	t.Helper()

	switch conf.Variant {
	case aucpace.StrongAugmented:
		server, err := aucpace.NewStrongServer(conf, db, testFallbackKey)
		require.NoError(t, err)

		return server
	case aucpace.PartiallyAugmented:
		keypair, err := aucpace.GenerateLongTermKeypair(conf, pake.CryptoRand{})
		require.NoError(t, err)

		server, err := aucpace.NewPartialServer(conf, db, keypair, testFallbackKey)
		require.NoError(t, err)

		return server
	default:
		server, err := aucpace.NewServer(conf, db, testFallbackKey)
		require.NoError(t, err)

		return server
	}
}

func register(t *testing.T, conf *aucpace.Configuration, db *memDatabase, username, password []byte) {
	t.Helper()

	if conf.Variant == aucpace.StrongAugmented {
		_, err := aucpace.RegisterStrong(conf, pake.CryptoRand{}, db, username, password)
		require.NoError(t, err)

		return
	}

	_, err := aucpace.Register(conf, pake.CryptoRand{}, db, username, password)
	require.NoError(t, err)
}

// runHandshake drives a full exchange over the serialized wire formats,
// starting with a fresh nonce agreement, and returns the two authentication
// errors.
func runHandshake(
	t *testing.T,
	conf *aucpace.Configuration,
	client *aucpace.Client,
	server *aucpace.Server,
) (clientErr, serverErr error) {
	t.Helper()

	source := pake.CryptoRand{}

	send := func(m *aucpace.ClientMessage) *aucpace.ClientMessage {
		parsed, err := conf.DeserializeClientMessage(m.Serialize())
		require.NoError(t, err)

		return parsed
	}
	reply := func(m *aucpace.ServerMessage) *aucpace.ServerMessage {
		parsed, err := conf.DeserializeServerMessage(m.Serialize())
		require.NoError(t, err)

		return parsed
	}

	clientNonce, err := client.Begin(source)
	require.NoError(t, err)

	serverNonce, err := server.Begin(source)
	require.NoError(t, err)

	require.NoError(t, client.EstablishSSID(reply(serverNonce)))
	require.NoError(t, server.EstablishSSID(send(clientNonce)))

	request, err := client.RequestAugmentation(source)
	require.NoError(t, err)

	info, err := server.ProcessAugmentationRequest(source, send(request))
	require.NoError(t, err)

	require.NoError(t, client.ProcessAugmentationInfo(reply(info)))

	clientPublic, err := client.CPaceStart(source)
	require.NoError(t, err)

	serverPublic, err := server.CPaceStart(source)
	require.NoError(t, err)

	ta, err := server.CPaceFinish(send(clientPublic))
	require.NoError(t, err)

	require.NoError(t, client.CPaceFinish(reply(serverPublic)))

	tb, clientErr := client.VerifyServerAuthenticator(reply(ta))
	if clientErr != nil {
		server.Abort()
		return clientErr, nil
	}

	serverErr = server.VerifyClientAuthenticator(send(tb))

	return nil, serverErr
}

func TestHandshakeVariants(t *testing.T) {
	username := []byte("alice")
	password := []byte("correct-password")

	for _, variant := range []aucpace.Variant{
		aucpace.Augmented,
		aucpace.StrongAugmented,
		aucpace.PartiallyAugmented,
	} {
		t.Run(fmt.Sprintf("variant_%d", variant), func(t *testing.T) {
			conf := testConfiguration(variant)
			db := newMemDatabase()
			register(t, conf, db, username, password)

			client, err := aucpace.NewClient(conf, username, password)
			require.NoError(t, err)

			server := newServer(t, conf, db)

			clientErr, serverErr := runHandshake(t, conf, client, server)
			require.NoError(t, clientErr)
			require.NoError(t, serverErr)

			clientKey, err := client.SessionKey()
			require.NoError(t, err)

			serverKey, err := server.SessionKey()
			require.NoError(t, err)

			require.True(t, clientKey.Equal(serverKey))
			require.NotZero(t, clientKey.Len())
		})
	}
}

func TestPreestablishedSSID(t *testing.T) {
	conf := testConfiguration(aucpace.Augmented)
	db := newMemDatabase()
	register(t, conf, db, []byte("alice"), []byte("pw"))

	client, err := aucpace.NewClient(conf, []byte("alice"), []byte("pw"))
	require.NoError(t, err)

	server := newServer(t, conf, db)

	ssid := []byte("agreed-upon-session-identifier")
	require.NoError(t, client.WithPreestablishedSSID(ssid))
	require.NoError(t, server.WithPreestablishedSSID(ssid))

	source := pake.CryptoRand{}

	request, err := client.RequestAugmentation(source)
	require.NoError(t, err)

	info, err := server.ProcessAugmentationRequest(source, request)
	require.NoError(t, err)
	require.NoError(t, client.ProcessAugmentationInfo(info))

	clientPublic, err := client.CPaceStart(source)
	require.NoError(t, err)

	serverPublic, err := server.CPaceStart(source)
	require.NoError(t, err)

	ta, err := server.CPaceFinish(clientPublic)
	require.NoError(t, err)
	require.NoError(t, client.CPaceFinish(serverPublic))

	tb, err := client.VerifyServerAuthenticator(ta)
	require.NoError(t, err)
	require.NoError(t, server.VerifyClientAuthenticator(tb))

	clientKey, err := client.SessionKey()
	require.NoError(t, err)

	serverKey, err := server.SessionKey()
	require.NoError(t, err)

	require.True(t, clientKey.Equal(serverKey))
}

func TestConfigurationValidation(t *testing.T) {
	valid := testConfiguration(aucpace.Augmented)

	for name, mutate := range map[string]func(c *aucpace.Configuration){
		"no group":       func(c *aucpace.Configuration) { c.Group = 0 },
		"no hash":        func(c *aucpace.Configuration) { c.Hash = 0 },
		"bad variant":    func(c *aucpace.Configuration) { c.Variant = 99 },
		"bad ksf":        func(c *aucpace.Configuration) { c.KSF = 200 },
		"negative nonce": func(c *aucpace.Configuration) { c.NonceLength = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			conf := *valid
			mutate(&conf)

			_, err := aucpace.NewClient(&conf, []byte("alice"), []byte("pw"))
			require.ErrorIs(t, err, pake.ErrConfiguration)

			_, err = aucpace.NewServer(&conf, newMemDatabase(), testFallbackKey)
			require.ErrorIs(t, err, pake.ErrConfiguration)
		})
	}
}

func TestShortPreestablishedSSID(t *testing.T) {
	conf := testConfiguration(aucpace.Augmented)

	client, err := aucpace.NewClient(conf, []byte("alice"), []byte("pw"))
	require.NoError(t, err)

	err = client.WithPreestablishedSSID([]byte("too-short"))
	require.ErrorIs(t, err, pake.ErrConfiguration)
}

func TestWrongPassword(t *testing.T) {
	for _, variant := range []aucpace.Variant{
		aucpace.Augmented,
		aucpace.StrongAugmented,
		aucpace.PartiallyAugmented,
	} {
		t.Run(fmt.Sprintf("variant_%d", variant), func(t *testing.T) {
			conf := testConfiguration(variant)
			db := newMemDatabase()
			register(t, conf, db, []byte("alice"), []byte("correct-password"))

			client, err := aucpace.NewClient(conf, []byte("alice"), []byte("wrong-password"))
			require.NoError(t, err)

			server := newServer(t, conf, db)

			// The server authenticates first, so the client detects the
			// mismatch.
			clientErr, _ := runHandshake(t, conf, client, server)
			require.ErrorIs(t, clientErr, pake.ErrAuthentication)

			_, err = client.SessionKey()
			require.ErrorIs(t, err, pake.ErrState)
		})
	}
}

func TestUnknownUserFallback(t *testing.T) {
	t.Run("base variant", func(t *testing.T) {
		conf := testConfiguration(aucpace.Augmented)

		respond := func() *aucpace.ServerMessage {
			server, err := aucpace.NewServer(conf, newMemDatabase(), testFallbackKey)
			require.NoError(t, err)

			require.NoError(t, server.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

			info, err := server.ProcessAugmentationRequest(pake.CryptoRand{}, &aucpace.ClientMessage{
				Kind:     aucpace.KindUsername,
				Username: []byte("mallory"),
			})
			require.NoError(t, err)

			return info
		}

		// The answer has the shape of a registered user's answer and is
		// deterministic per username.
		first := respond()
		require.Equal(t, aucpace.KindAugmentationInfo, first.Kind)
		require.Len(t, first.Salt, aucpace.DefaultSaltLength)
		require.Len(t, first.PublicKey, conf.Group.ElementLength())

		second := respond()
		require.Equal(t, first.Salt, second.Salt)

		// The handshake then completes up to mutual authentication and
		// fails there, like a wrong password.
		db := newMemDatabase()
		client, err := aucpace.NewClient(conf, []byte("mallory"), []byte("guess"))
		require.NoError(t, err)

		server := newServer(t, conf, db)

		clientErr, _ := runHandshake(t, conf, client, server)
		require.ErrorIs(t, clientErr, pake.ErrAuthentication)
	})

	t.Run("strong variant", func(t *testing.T) {
		conf := testConfiguration(aucpace.StrongAugmented)

		server, err := aucpace.NewStrongServer(conf, newMemDatabase(), testFallbackKey)
		require.NoError(t, err)

		require.NoError(t, server.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

		client, err := aucpace.NewClient(conf, []byte("mallory"), []byte("guess"))
		require.NoError(t, err)

		require.NoError(t, client.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

		request, err := client.RequestAugmentation(pake.CryptoRand{})
		require.NoError(t, err)

		info, err := server.ProcessAugmentationRequest(pake.CryptoRand{}, request)
		require.NoError(t, err)
		require.Equal(t, aucpace.KindStrongAugmentationInfo, info.Kind)

		// The blinded salt must be a valid non-identity point or the
		// fallback is detectable.
		point := conf.Group.NewElement()
		require.NoError(t, point.Decode(info.BlindedSalt))
		require.False(t, point.IsIdentity())

		// The client can keep going and only fails at authentication.
		require.NoError(t, client.ProcessAugmentationInfo(info))
	})
}

func TestVariantMismatch(t *testing.T) {
	strongConf := testConfiguration(aucpace.StrongAugmented)
	baseConf := testConfiguration(aucpace.Augmented)

	// A strong client talking to a base server: the server refuses the
	// request kind instead of downgrading.
	db := newMemDatabase()
	register(t, baseConf, db, []byte("alice"), []byte("pw"))

	server, err := aucpace.NewServer(baseConf, db, testFallbackKey)
	require.NoError(t, err)

	require.NoError(t, server.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

	client, err := aucpace.NewClient(strongConf, []byte("alice"), []byte("pw"))
	require.NoError(t, err)

	require.NoError(t, client.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

	request, err := client.RequestAugmentation(pake.CryptoRand{})
	require.NoError(t, err)
	require.Equal(t, aucpace.KindStrongUsername, request.Kind)

	_, err = server.ProcessAugmentationRequest(pake.CryptoRand{}, request)
	require.ErrorIs(t, err, pake.ErrEncoding)

	// And the mirror image: a base client's request refused by a strong
	// server.
	strongServer, err := aucpace.NewStrongServer(strongConf, newMemDatabase(), testFallbackKey)
	require.NoError(t, err)

	require.NoError(t, strongServer.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

	_, err = strongServer.ProcessAugmentationRequest(pake.CryptoRand{}, &aucpace.ClientMessage{
		Kind:     aucpace.KindUsername,
		Username: []byte("alice"),
	})
	require.ErrorIs(t, err, pake.ErrEncoding)
}

func TestRejectsInvalidPeerPoints(t *testing.T) {
	conf := testConfiguration(aucpace.Augmented)
	identity := conf.Group.NewElement().Encode()

	setup := func(t *testing.T) (*aucpace.Client, *aucpace.Server) {
		t.Helper()

		db := newMemDatabase()
		register(t, conf, db, []byte("alice"), []byte("pw"))

		client, err := aucpace.NewClient(conf, []byte("alice"), []byte("pw"))
		require.NoError(t, err)

		server := newServer(t, conf, db)

		require.NoError(t, client.WithPreestablishedSSID([]byte("agreed-upon-session-id")))
		require.NoError(t, server.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

		return client, server
	}

	t.Run("client rejects identity server public key", func(t *testing.T) {
		client, server := setup(t)

		request, err := client.RequestAugmentation(pake.CryptoRand{})
		require.NoError(t, err)

		info, err := server.ProcessAugmentationRequest(pake.CryptoRand{}, request)
		require.NoError(t, err)

		info.PublicKey = identity
		err = client.ProcessAugmentationInfo(info)
		require.ErrorIs(t, err, pake.ErrInvalidPeer)
	})

	t.Run("server rejects identity CPace point", func(t *testing.T) {
		client, server := setup(t)

		request, err := client.RequestAugmentation(pake.CryptoRand{})
		require.NoError(t, err)

		info, err := server.ProcessAugmentationRequest(pake.CryptoRand{}, request)
		require.NoError(t, err)
		require.NoError(t, client.ProcessAugmentationInfo(info))

		_, err = server.CPaceStart(pake.CryptoRand{})
		require.NoError(t, err)

		_, err = server.CPaceFinish(&aucpace.ClientMessage{
			Kind:    aucpace.KindClientPublicKey,
			Element: identity,
		})
		require.ErrorIs(t, err, pake.ErrInvalidPeer)
	})
}

func TestRejectsUnknownKSF(t *testing.T) {
	conf := testConfiguration(aucpace.Augmented)

	t.Run("deserialization", func(t *testing.T) {
		base := &aucpace.ServerMessage{
			Kind:      aucpace.KindAugmentationInfo,
			KSF:       200,
			PublicKey: make([]byte, conf.Group.ElementLength()),
			Salt:      make([]byte, aucpace.DefaultSaltLength),
		}

		_, err := conf.DeserializeServerMessage(base.Serialize())
		require.ErrorIs(t, err, pake.ErrEncoding)

		strong := &aucpace.ServerMessage{
			Kind:        aucpace.KindStrongAugmentationInfo,
			KSF:         200,
			PublicKey:   make([]byte, conf.Group.ElementLength()),
			BlindedSalt: make([]byte, conf.Group.ElementLength()),
		}

		_, err = testConfiguration(aucpace.StrongAugmented).DeserializeServerMessage(strong.Serialize())
		require.ErrorIs(t, err, pake.ErrEncoding)
	})

	t.Run("client rejects tampered identifier", func(t *testing.T) {
		db := newMemDatabase()
		register(t, conf, db, []byte("alice"), []byte("pw"))

		client, err := aucpace.NewClient(conf, []byte("alice"), []byte("pw"))
		require.NoError(t, err)

		server := newServer(t, conf, db)

		require.NoError(t, client.WithPreestablishedSSID([]byte("agreed-upon-session-id")))
		require.NoError(t, server.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

		request, err := client.RequestAugmentation(pake.CryptoRand{})
		require.NoError(t, err)

		info, err := server.ProcessAugmentationRequest(pake.CryptoRand{}, request)
		require.NoError(t, err)

		info.KSF = 200
		err = client.ProcessAugmentationInfo(info)
		require.ErrorIs(t, err, pake.ErrEncoding)

		_, err = client.SessionKey()
		require.ErrorIs(t, err, pake.ErrState)
	})
}

func TestFailingRandomness(t *testing.T) {
	conf := testConfiguration(aucpace.Augmented)

	client, err := aucpace.NewClient(conf, []byte("alice"), []byte("pw"))
	require.NoError(t, err)

	_, err = client.Begin(failingSource{})
	require.ErrorIs(t, err, pake.ErrRandomness)

	db := newMemDatabase()
	_, err = aucpace.Register(conf, failingSource{}, db, []byte("alice"), []byte("pw"))
	require.ErrorIs(t, err, pake.ErrRandomness)

	server := newServer(t, conf, db)
	_, err = server.Begin(failingSource{})
	require.ErrorIs(t, err, pake.ErrRandomness)
}

func TestStateEnforcement(t *testing.T) {
	conf := testConfiguration(aucpace.Augmented)

	client, err := aucpace.NewClient(conf, []byte("alice"), []byte("pw"))
	require.NoError(t, err)

	_, err = client.RequestAugmentation(pake.CryptoRand{})
	require.ErrorIs(t, err, pake.ErrState)

	_, err = client.SessionKey()
	require.ErrorIs(t, err, pake.ErrState)

	require.NoError(t, client.WithPreestablishedSSID([]byte("agreed-upon-session-id")))

	err = client.WithPreestablishedSSID([]byte("agreed-upon-session-id"))
	require.ErrorIs(t, err, pake.ErrState)

	_, err = client.Begin(pake.CryptoRand{})
	require.ErrorIs(t, err, pake.ErrState)
}

func TestMessageDeserialization(t *testing.T) {
	conf := testConfiguration(aucpace.Augmented)

	t.Run("unknown kind", func(t *testing.T) {
		_, err := conf.DeserializeClientMessage([]byte{0xFF, 1, 2, 3})
		require.ErrorIs(t, err, pake.ErrEncoding)

		_, err = conf.DeserializeServerMessage([]byte{0xFF, 1, 2, 3})
		require.ErrorIs(t, err, pake.ErrEncoding)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := conf.DeserializeClientMessage(nil)
		require.ErrorIs(t, err, pake.ErrEncoding)
	})

	t.Run("wrong nonce length", func(t *testing.T) {
		m := &aucpace.ClientMessage{
			Kind:  aucpace.KindClientNonce,
			Nonce: make([]byte, aucpace.DefaultNonceLength+1),
		}

		_, err := conf.DeserializeClientMessage(m.Serialize())
		require.ErrorIs(t, err, pake.ErrEncoding)
	})

	t.Run("strong username round trip", func(t *testing.T) {
		in := &aucpace.ClientMessage{
			Kind:     aucpace.KindStrongUsername,
			Username: []byte("alice"),
			Blinded:  make([]byte, conf.Group.ElementLength()),
		}

		out, err := conf.DeserializeClientMessage(in.Serialize())
		require.NoError(t, err)
		require.Equal(t, in.Username, out.Username)
		require.Equal(t, in.Blinded, out.Blinded)
	})

	t.Run("augmentation info round trip", func(t *testing.T) {
		in := &aucpace.ServerMessage{
			Kind:      aucpace.KindAugmentationInfo,
			KSF:       conf.KSF,
			PublicKey: make([]byte, conf.Group.ElementLength()),
			Salt:      make([]byte, aucpace.DefaultSaltLength),
		}

		out, err := conf.DeserializeServerMessage(in.Serialize())
		require.NoError(t, err)
		require.Equal(t, in.PublicKey, out.PublicKey)
		require.Equal(t, in.Salt, out.Salt)
		require.Equal(t, in.KSF, out.KSF)
	})
}
