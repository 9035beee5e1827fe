// Command contactcrawler collects company contact emails from a business directory.
package main

import "github.com/JakeFAU/contact-crawler/cmd"

func main() {
	cmd.Execute()
}
