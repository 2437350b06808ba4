package sha256_test

import (
	"bytes"
	"fmt"

	"massnet.org/massdigest/crypto/sha256"
)

func ExampleSum256() {
	sum := sha256.Sum256([]byte("hello world\n"))
	fmt.Printf("%x", sum)
	// Output: a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447
}

func ExampleSum224() {
	sum := sha256.Sum224([]byte("hello world\n"))
	fmt.Printf("%x", sum)
	// Output: 95041dd60ab08c0bf5636d50be85fe9790300f39eb84602858a9b430
}

func ExampleInit() {
	d := sha256.Init(sha256.SHA256)
	d.Update([]byte("hello "))
	d.Update([]byte("world\n"))
	fmt.Printf("%x", d.Final())
	// Output: a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447
}

func ExampleDigest_Export() {
	const (
		input1 = "The tunneling gopher digs downwards, "
		input2 = "unaware of what he will find."
	)

	first := sha256.Init(sha256.SHA256)
	first.Update([]byte(input1))
	state := first.Export()

	second, err := sha256.Import(sha256.SHA256, state[:])
	if err != nil {
		fmt.Println("unable to import state:", err)
		return
	}

	first.Update([]byte(input2))
	second.Update([]byte(input2))

	a, b := first.Final(), second.Final()
	fmt.Printf("%x\n", a)
	fmt.Println(bytes.Equal(a, b))
	// Output:
	// 57d51a066f3a39942649cd9a76c77e97ceab246756ff3888659e6aa5a07f4a52
	// true
}
