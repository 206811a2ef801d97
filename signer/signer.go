package signer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/pkg/errors"

	"celo-wallet-service/txtypes"
)

/*Celo 的 BIP-44 币种号*/
const celoDerivationPath = "m/44'/52752'/0'/0/0"

/*热钱包签名器，助记词派生私钥，对交易摘要出签*/
type HotWalletSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func NewHotWalletSigner(mnemonic string) (*HotWalletSigner, error) {
	if mnemonic == "" {
		return nil, errors.New("hot wallet mnemonic is required")
	}
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create wallet from mnemonic")
	}
	path := hdwallet.MustParseDerivationPath(celoDerivationPath)
	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive account")
	}
	privateKey, err := wallet.PrivateKey(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get private key")
	}
	return &HotWalletSigner{
		privateKey: privateKey,
		address:    account.Address,
	}, nil
}

func (s *HotWalletSigner) Address() common.Address {
	return s.address
}

func (s *HotWalletSigner) PublicKeyHex() string {
	return hexutil.Encode(crypto.CompressPubkey(&s.privateKey.PublicKey))
}

/*对 32 字节摘要出签，返回可直接塞进交易的签名*/
func (s *HotWalletSigner) SignDigest(digest common.Hash) (*txtypes.Signature, error) {
	sig, err := crypto.Sign(digest[:], s.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "sign digest fail")
	}
	return &txtypes.Signature{
		YParity: uint64(sig[64]),
		R:       new(big.Int).SetBytes(sig[:32]),
		S:       new(big.Int).SetBytes(sig[32:64]),
	}, nil
}
